// Package testdata builds small, hand-authored snapshots for use in
// tests, standing in for internal/store's Postgres loader.
package testdata

import (
	"strconv"
	"time"

	"github.com/cbchhaya/aras/internal/snapshot"
)

// Builder assembles a snapshot.Snapshot incrementally. Its zero value is
// ready to use.
type Builder struct {
	snap snapshot.Snapshot
}

// NewBuilder returns a Builder anchored to the given snapshot time.
func NewBuilder(snapshotTime time.Time) *Builder {
	return &Builder{snap: snapshot.Snapshot{SnapshotTime: snapshotTime}}
}

func (b *Builder) WithLOB(id, name string) *Builder {
	b.snap.LOBs = append(b.snap.LOBs, snapshot.LOB{ID: id, Name: name})
	return b
}

func (b *Builder) WithSubLOB(id, lobID string) *Builder {
	b.snap.SubLOBs = append(b.snap.SubLOBs, snapshot.SubLOB{ID: id, LOBID: lobID})
	return b
}

func (b *Builder) WithTeam(id, subLOBID, lobID string) *Builder {
	b.snap.Teams = append(b.snap.Teams, snapshot.Team{ID: id, SubLOBID: subLOBID, LOBID: lobID})
	return b
}

// Employee describes one employee for WithEmployee, leaving zero-valued
// fields out of the constructor argument list for readability in tests.
// Status defaults to "Active" when left empty.
type Employee struct {
	ID, ManagerID, TeamID, LocationID          string
	JobTitle, JobCode, JobFamily, CostCenterID string
	JobLevel                                   int
	HireDate, RoleStartDate                    time.Time
	Status, EmploymentType                     string
}

func (b *Builder) WithEmployee(e Employee) *Builder {
	status := e.Status
	if status == "" {
		status = "Active"
	}
	b.snap.Employees = append(b.snap.Employees, snapshot.Employee{
		ID:             e.ID,
		ManagerID:      e.ManagerID,
		TeamID:         e.TeamID,
		LocationID:     e.LocationID,
		JobTitle:       e.JobTitle,
		JobCode:        e.JobCode,
		JobFamily:      e.JobFamily,
		JobLevel:       e.JobLevel,
		CostCenterID:   e.CostCenterID,
		HireDate:       snapshot.FlexTime{Time: e.HireDate},
		RoleStartDate:  snapshot.FlexTime{Time: e.RoleStartDate},
		Status:         status,
		EmploymentType: e.EmploymentType,
	})
	return b
}

func (b *Builder) WithResource(id, name, sensitivity string) *Builder {
	b.snap.Resources = append(b.snap.Resources, snapshot.Resource{ID: id, Name: name, SensitivityLevel: sensitivity})
	return b
}

func (b *Builder) WithGrant(id, employeeID, resourceID string, grantedAt time.Time) *Builder {
	b.snap.AccessGrants = append(b.snap.AccessGrants, snapshot.AccessGrant{
		ID: id, EmployeeID: employeeID, ResourceID: resourceID,
		GrantedAt: snapshot.FlexTime{Time: grantedAt},
	})
	return b
}

// WithActivity records an activity rollup for one employee/resource pair.
// totalAccessCount is the lifetime count that gates dormancy; count30d is
// the trailing 30-day count used only to distinguish active tiers.
func (b *Builder) WithActivity(employeeID, resourceID string, totalAccessCount, count30d int, lastAccessedAt time.Time) *Builder {
	b.snap.ActivitySummaries = append(b.snap.ActivitySummaries, snapshot.ActivitySummary{
		EmployeeID:       employeeID,
		ResourceID:       resourceID,
		TotalAccessCount: totalAccessCount,
		AccessCount30d:   count30d,
		LastAccessedAt:   snapshot.FlexTime{Time: lastAccessedAt},
	})
	return b
}

// Build returns the assembled snapshot.
func (b *Builder) Build() snapshot.Snapshot {
	return b.snap
}

// Flat builds a small single-LOB org: one manager with n direct reports,
// all on the same team, sub-LOB, and LOB, useful as a baseline fixture
// that many tests start from and then perturb.
func Flat(n int, lobID, subLOBID, teamID string, snapshotTime time.Time) snapshot.Snapshot {
	b := NewBuilder(snapshotTime).
		WithLOB(lobID, lobID).
		WithSubLOB(subLOBID, lobID).
		WithTeam(teamID, subLOBID, lobID).
		WithEmployee(Employee{
			ID: "mgr", TeamID: teamID, JobTitle: "Manager", JobCode: "MGR1", JobFamily: "Management",
			JobLevel: 5, HireDate: snapshotTime.AddDate(-5, 0, 0), RoleStartDate: snapshotTime.AddDate(-3, 0, 0),
		})

	for i := 0; i < n; i++ {
		id := "emp" + strconv.Itoa(i)
		b = b.WithEmployee(Employee{
			ID: id, ManagerID: "mgr", TeamID: teamID, JobTitle: "Analyst", JobCode: "ANL1", JobFamily: "Analytics",
			JobLevel: 3, HireDate: snapshotTime.AddDate(-2, 0, 0), RoleStartDate: snapshotTime.AddDate(-1, 0, 0),
		})
	}
	return b.Build()
}
