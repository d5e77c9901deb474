// Package snapshot defines the read-only input entities the analytics
// pipeline consumes: employees, the org structure above them, the
// resources they can be granted access to, the grants themselves, and a
// rollup of how often each grant has actually been used.
package snapshot

import "time"

// Employee is a single person in the organization. Only employees with
// Status "Active" participate in the pipeline; terminated/inactive
// employees are filtered out before feature extraction runs.
type Employee struct {
	ID             string   `json:"id"`
	ManagerID      string   `json:"manager_id,omitempty"`
	TeamID         string   `json:"team_id,omitempty"`
	LocationID     string   `json:"location_id,omitempty"`
	JobTitle       string   `json:"job_title"`
	JobCode        string   `json:"job_code"`
	JobFamily      string   `json:"job_family"`
	JobLevel       int      `json:"job_level"`
	CostCenterID   string   `json:"cost_center_id,omitempty"`
	HireDate       FlexTime `json:"hire_date"`
	RoleStartDate  FlexTime `json:"role_start_date"`
	Status         string   `json:"status"`                    // "Active", "Terminated", "On Leave", etc.
	EmploymentType string   `json:"employment_type,omitempty"` // "Full-Time", "Contractor", etc.
}

// Team groups employees under a Sub-LOB (or directly under a LOB).
type Team struct {
	ID       string `json:"id"`
	SubLOBID string `json:"sub_lob_id,omitempty"`
	LOBID    string `json:"lob_id,omitempty"`
}

// SubLOB is an intermediate organizational grouping between Team and LOB.
type SubLOB struct {
	ID    string `json:"id"`
	LOBID string `json:"lob_id"`
}

// LOB is the top-level line-of-business grouping used for blocking and
// for scoping a run to a single business unit.
type LOB struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resource is anything an employee can be granted access to.
type Resource struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	SensitivityLevel string `json:"sensitivity_level"` // "Public", "Internal", "Confidential", "Critical"
}

// AccessGrant ties an employee to a resource they currently hold access to.
type AccessGrant struct {
	ID         string   `json:"id"`
	EmployeeID string   `json:"employee_id"`
	ResourceID string   `json:"resource_id"`
	GrantedAt  FlexTime `json:"granted_at"`
}

// ActivitySummary rolls up how often an employee actually used a resource
// they were granted. TotalAccessCount is the lifetime count and is what
// gates the dormant bucket; AccessCount30d picks the tier within the
// active bucket (and sets usage intensity), AccessCount90d is carried
// through but not used in scoring, and LastAccessedAt drives recency
// independently of any of the counts.
type ActivitySummary struct {
	EmployeeID       string   `json:"employee_id"`
	ResourceID       string   `json:"resource_id"`
	TotalAccessCount int      `json:"total_access_count"`
	AccessCount30d   int      `json:"access_count_30d"`
	AccessCount90d   int      `json:"access_count_90d"`
	LastAccessedAt   FlexTime `json:"last_accessed_at,omitempty"`
}

// Snapshot is the complete read-only bundle the pipeline operates over.
// Callers build it from a fixture (internal/testdata) or load it from a
// live store (internal/store).
type Snapshot struct {
	Employees        []Employee
	Teams            []Team
	SubLOBs          []SubLOB
	LOBs             []LOB
	Resources        []Resource
	AccessGrants     []AccessGrant
	ActivitySummaries []ActivitySummary

	// SnapshotTime anchors tenure/time-in-role computations. It must be
	// supplied explicitly rather than read from the wall clock at
	// computation time, so that two runs over the same data produce
	// byte-identical output.
	SnapshotTime time.Time
}

// Error is returned when the snapshot itself is unusable: a LOB filter
// that matches no LOB, a resource with an unrecognized sensitivity level,
// or a grant referencing an unknown resource. Fields absent from the
// input are not detected; they decode to zero values. It is one of the
// two fatal error kinds the pipeline can return (the other is
// config.Error); everything else is recovered locally.
type Error struct {
	Record string // e.g. "employee", "access_grant"
	ID     string
	Reason string
}

func (e *Error) Error() string {
	if e.ID != "" {
		return "snapshot: " + e.Record + " " + e.ID + ": " + e.Reason
	}
	return "snapshot: " + e.Record + ": " + e.Reason
}
