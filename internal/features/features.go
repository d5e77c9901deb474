// Package features extracts the per-employee structural, functional,
// behavioral, and temporal attributes the proximity calculator compares
// employees on.
package features

import (
	"fmt"
	"sort"
	"time"

	"github.com/cbchhaya/aras/internal/snapshot"
)

// EmployeeFeatures is the extracted feature set for one employee.
type EmployeeFeatures struct {
	EmployeeID string

	// Structural
	ManagerID  string
	TeamID     string
	SubLOBID   string
	LOBID      string
	LocationID string

	// Functional
	JobTitle     string
	JobCode      string
	JobFamily    string
	JobLevel     int
	CostCenterID string

	// Behavioral
	AccessSet      map[string]struct{} // resource_id set
	ActivityVector map[string]float64  // resource_id -> usage intensity [0,1]

	// Temporal
	TenureDays     int
	TimeInRoleDays int
	HireQuarter    string
}

// lobIndex resolves a team to its sub-LOB and LOB, falling back to the
// sub-LOB's own LOB when the team doesn't carry one directly.
type lobIndex struct {
	teams   map[string]snapshot.Team
	subLOBs map[string]snapshot.SubLOB
}

func buildLOBIndex(teams []snapshot.Team, subLOBs []snapshot.SubLOB) lobIndex {
	idx := lobIndex{
		teams:   make(map[string]snapshot.Team, len(teams)),
		subLOBs: make(map[string]snapshot.SubLOB, len(subLOBs)),
	}
	for _, t := range teams {
		idx.teams[t.ID] = t
	}
	for _, s := range subLOBs {
		idx.subLOBs[s.ID] = s
	}
	return idx
}

func (idx lobIndex) resolve(teamID string) (subLOBID, lobID string) {
	team, ok := idx.teams[teamID]
	if !ok {
		return "", ""
	}
	subLOBID, lobID = team.SubLOBID, team.LOBID
	if subLOBID != "" && lobID == "" {
		if sub, ok := idx.subLOBs[subLOBID]; ok {
			lobID = sub.LOBID
		}
	}
	return subLOBID, lobID
}

func hireQuarter(t snapshot.Employee) string {
	if t.HireDate.IsZero() {
		return ""
	}
	quarter := (int(t.HireDate.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", t.HireDate.Year(), quarter)
}

// Extract computes EmployeeFeatures for every employee in snap, scoped
// to the provided employee list (the caller has already applied any LOB
// filter). now anchors tenure/time-in-role computation so that repeated
// runs over the same snapshot are reproducible; callers pass
// snap.SnapshotTime rather than time.Now().
func Extract(employees []snapshot.Employee, snap snapshot.Snapshot, now time.Time) map[string]*EmployeeFeatures {
	idx := buildLOBIndex(snap.Teams, snap.SubLOBs)

	accessByEmployee := make(map[string]map[string]struct{})
	for _, g := range snap.AccessGrants {
		set, ok := accessByEmployee[g.EmployeeID]
		if !ok {
			set = make(map[string]struct{})
			accessByEmployee[g.EmployeeID] = set
		}
		set[g.ResourceID] = struct{}{}
	}

	activityByEmployee := make(map[string]map[string]float64)
	for _, a := range snap.ActivitySummaries {
		vec, ok := activityByEmployee[a.EmployeeID]
		if !ok {
			vec = make(map[string]float64)
			activityByEmployee[a.EmployeeID] = vec
		}
		intensity := float64(a.AccessCount30d) / 100.0
		if intensity > 1.0 {
			intensity = 1.0
		}
		vec[a.ResourceID] = intensity
	}

	result := make(map[string]*EmployeeFeatures, len(employees))
	for _, emp := range employees {
		subLOBID, lobID := idx.resolve(emp.TeamID)

		tenureDays, timeInRoleDays := 0, 0
		if !emp.HireDate.IsZero() {
			tenureDays = int(now.Sub(emp.HireDate.Time).Hours() / 24)
		}
		if !emp.RoleStartDate.IsZero() {
			timeInRoleDays = int(now.Sub(emp.RoleStartDate.Time).Hours() / 24)
		}

		result[emp.ID] = &EmployeeFeatures{
			EmployeeID:     emp.ID,
			ManagerID:      emp.ManagerID,
			TeamID:         emp.TeamID,
			SubLOBID:       subLOBID,
			LOBID:          lobID,
			LocationID:     emp.LocationID,
			JobTitle:       emp.JobTitle,
			JobCode:        emp.JobCode,
			JobFamily:      emp.JobFamily,
			JobLevel:       emp.JobLevel,
			CostCenterID:   emp.CostCenterID,
			AccessSet:      accessByEmployee[emp.ID],
			ActivityVector: activityByEmployee[emp.ID],
			TenureDays:     tenureDays,
			TimeInRoleDays: timeInRoleDays,
			HireQuarter:    hireQuarter(emp),
		}
	}
	return result
}

// ManagerChains resolves each employee's chain of manager IDs up to the
// root (or until a cycle/unknown manager is hit). Each chain is ordered
// from the direct manager upward; the returned map itself is unordered.
func ManagerChains(employees []snapshot.Employee) map[string][]string {
	byID := make(map[string]snapshot.Employee, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
	}

	chains := make(map[string][]string, len(employees))
	for _, e := range employees {
		chain := make([]string, 0, 4)
		seen := map[string]struct{}{e.ID: {}}
		cur := e.ManagerID
		for cur != "" {
			if _, looped := seen[cur]; looped {
				break
			}
			chain = append(chain, cur)
			seen[cur] = struct{}{}
			next, ok := byID[cur]
			if !ok {
				break
			}
			cur = next.ManagerID
		}
		chains[e.ID] = chain
	}
	return chains
}

// SortedIDs returns the keys of a features map in a stable, deterministic
// order, matching the discipline the rest of the pipeline uses whenever
// it must iterate a map and feed the result into a floating-point
// reduction.
func SortedIDs(m map[string]*EmployeeFeatures) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
