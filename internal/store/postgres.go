// Package store loads read-only snapshots from PostgreSQL. It has no
// write methods: persisting pipeline results is out of scope here, the
// same way the pipeline's output is handed back to the caller to do
// with as they choose.
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cbchhaya/aras/internal/snapshot"
)

// Loader reads a Snapshot from a PostgreSQL database over a connection
// pool. It exposes no write method.
type Loader struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against connStr and verifies it with a ping.
func Connect(ctx context.Context, connStr string) (*Loader, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	log.Println("connected to PostgreSQL for recertification snapshot loading")
	return &Loader{pool: pool}, nil
}

// Close releases the connection pool.
func (l *Loader) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}

// Load reads a complete Snapshot as of snapshotTime. snapshotTime is not
// derived from the query — it is supplied by the caller so the same
// database state always produces the same tenure/time-in-role figures.
func (l *Loader) Load(ctx context.Context, snapshotTime time.Time) (snapshot.Snapshot, error) {
	snap := snapshot.Snapshot{SnapshotTime: snapshotTime}

	var err error
	if snap.LOBs, err = l.loadLOBs(ctx); err != nil {
		return snapshot.Snapshot{}, err
	}
	if snap.SubLOBs, err = l.loadSubLOBs(ctx); err != nil {
		return snapshot.Snapshot{}, err
	}
	if snap.Teams, err = l.loadTeams(ctx); err != nil {
		return snapshot.Snapshot{}, err
	}
	if snap.Employees, err = l.loadEmployees(ctx); err != nil {
		return snapshot.Snapshot{}, err
	}
	if snap.Resources, err = l.loadResources(ctx); err != nil {
		return snapshot.Snapshot{}, err
	}
	if snap.AccessGrants, err = l.loadAccessGrants(ctx); err != nil {
		return snapshot.Snapshot{}, err
	}
	if snap.ActivitySummaries, err = l.loadActivitySummaries(ctx); err != nil {
		return snapshot.Snapshot{}, err
	}
	return snap, nil
}

func (l *Loader) loadLOBs(ctx context.Context) ([]snapshot.LOB, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, name FROM lobs`)
	if err != nil {
		return nil, fmt.Errorf("loading lobs: %w", err)
	}
	defer rows.Close()

	var out []snapshot.LOB
	for rows.Next() {
		var l snapshot.LOB
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, fmt.Errorf("scanning lob: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (l *Loader) loadSubLOBs(ctx context.Context) ([]snapshot.SubLOB, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, lob_id FROM sub_lobs`)
	if err != nil {
		return nil, fmt.Errorf("loading sub_lobs: %w", err)
	}
	defer rows.Close()

	var out []snapshot.SubLOB
	for rows.Next() {
		var s snapshot.SubLOB
		if err := rows.Scan(&s.ID, &s.LOBID); err != nil {
			return nil, fmt.Errorf("scanning sub_lob: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (l *Loader) loadTeams(ctx context.Context) ([]snapshot.Team, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, sub_lob_id, lob_id FROM teams`)
	if err != nil {
		return nil, fmt.Errorf("loading teams: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Team
	for rows.Next() {
		var t snapshot.Team
		var subLOBID, lobID *string
		if err := rows.Scan(&t.ID, &subLOBID, &lobID); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		if subLOBID != nil {
			t.SubLOBID = *subLOBID
		}
		if lobID != nil {
			t.LOBID = *lobID
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (l *Loader) loadEmployees(ctx context.Context) ([]snapshot.Employee, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, manager_id, team_id, location_id, job_title, job_code,
		       job_family, job_level, cost_center_id, hire_date, role_start_date,
		       status, employment_type
		FROM employees`)
	if err != nil {
		return nil, fmt.Errorf("loading employees: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Employee
	for rows.Next() {
		var e snapshot.Employee
		var managerID, teamID, locationID, costCenterID *string
		var hireDate, roleStartDate time.Time
		if err := rows.Scan(&e.ID, &managerID, &teamID, &locationID, &e.JobTitle, &e.JobCode,
			&e.JobFamily, &e.JobLevel, &costCenterID, &hireDate, &roleStartDate,
			&e.Status, &e.EmploymentType); err != nil {
			return nil, fmt.Errorf("scanning employee: %w", err)
		}
		e.HireDate = snapshot.FlexTime{Time: hireDate}
		e.RoleStartDate = snapshot.FlexTime{Time: roleStartDate}
		if managerID != nil {
			e.ManagerID = *managerID
		}
		if teamID != nil {
			e.TeamID = *teamID
		}
		if locationID != nil {
			e.LocationID = *locationID
		}
		if costCenterID != nil {
			e.CostCenterID = *costCenterID
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *Loader) loadResources(ctx context.Context) ([]snapshot.Resource, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, name, sensitivity_level FROM resources`)
	if err != nil {
		return nil, fmt.Errorf("loading resources: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Resource
	for rows.Next() {
		var r snapshot.Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.SensitivityLevel); err != nil {
			return nil, fmt.Errorf("scanning resource: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (l *Loader) loadAccessGrants(ctx context.Context) ([]snapshot.AccessGrant, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, employee_id, resource_id, granted_at FROM access_grants`)
	if err != nil {
		return nil, fmt.Errorf("loading access_grants: %w", err)
	}
	defer rows.Close()

	var out []snapshot.AccessGrant
	for rows.Next() {
		var g snapshot.AccessGrant
		var grantedAt time.Time
		if err := rows.Scan(&g.ID, &g.EmployeeID, &g.ResourceID, &grantedAt); err != nil {
			return nil, fmt.Errorf("scanning access_grant: %w", err)
		}
		g.GrantedAt = snapshot.FlexTime{Time: grantedAt}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (l *Loader) loadActivitySummaries(ctx context.Context) ([]snapshot.ActivitySummary, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT employee_id, resource_id, total_access_count, access_count_30d,
		       access_count_90d, last_accessed_at
		FROM activity_summaries`)
	if err != nil {
		return nil, fmt.Errorf("loading activity_summaries: %w", err)
	}
	defer rows.Close()

	var out []snapshot.ActivitySummary
	for rows.Next() {
		var a snapshot.ActivitySummary
		var lastAccessedAt *time.Time
		if err := rows.Scan(&a.EmployeeID, &a.ResourceID, &a.TotalAccessCount, &a.AccessCount30d,
			&a.AccessCount90d, &lastAccessedAt); err != nil {
			return nil, fmt.Errorf("scanning activity_summary: %w", err)
		}
		if lastAccessedAt != nil {
			a.LastAccessedAt = snapshot.FlexTime{Time: *lastAccessedAt}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
