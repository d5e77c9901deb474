// Package pipeline coordinates the full run: feature extraction, peer
// proximity, multi-strategy clustering, consensus reconciliation, and
// grant-level assurance scoring, in that order, over one snapshot.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cbchhaya/aras/internal/assurance"
	"github.com/cbchhaya/aras/internal/clustering"
	"github.com/cbchhaya/aras/internal/config"
	"github.com/cbchhaya/aras/internal/consensus"
	"github.com/cbchhaya/aras/internal/features"
	"github.com/cbchhaya/aras/internal/proximity"
	"github.com/cbchhaya/aras/internal/snapshot"
)

// Summary is the top-level aggregate counts every run reports.
type Summary struct {
	TotalEmployees            int `json:"total_employees"`
	TotalGrants               int `json:"total_grants"`
	HighAssuranceCount        int `json:"high_assurance_count"`
	MediumAssuranceCount      int `json:"medium_assurance_count"`
	LowAssuranceCount         int `json:"low_assurance_count"`
	AutoCertifyEligibleCount  int `json:"auto_certify_eligible_count"`
	NeedsHumanReviewCount     int `json:"needs_human_review_count"`
	ClusteringDisagreementCount int `json:"clustering_disagreement_count"`
}

// Result is the complete output of one pipeline run, serializable to
// the document shape callers depend on: summary, assurance_scores keyed
// by grant ID, consensus_results keyed by employee ID.
type Result struct {
	Summary          Summary                       `json:"summary"`
	AssuranceScores  map[string]assurance.Score    `json:"assurance_scores"`
	ConsensusResults map[string]*consensus.Result  `json:"consensus_results"`

	// StrategyAgreement reports, for every pair of clustering strategies
	// that both produced assignments, how closely their partitions of
	// the employee set agree (ARI) and diverge (VI). It is a diagnostic
	// over the run as a whole, not an input to any per-grant score.
	StrategyAgreement []consensus.PairAgreement `json:"strategy_agreement"`

	RunID string `json:"run_id"`
}

// Run executes the full analytics pipeline over snap using cfg, scoped
// to cfg.LOBFilter if set (by LOB ID or LOB name). It returns a
// *snapshot.Error or *config.Error for any fatal input problem; all
// other per-employee/per-grant failures are absorbed and surfaced as
// reduced confidence/explanations rather than aborting the run.
func Run(ctx context.Context, snap snapshot.Snapshot, cfg config.Config) (*Result, error) {
	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log.Printf("run %s: starting pipeline over %d employees", runID, len(snap.Employees))

	employees, err := filterByLOB(snap, cfg.LOBFilter)
	if err != nil {
		return nil, err
	}
	employees = filterActive(employees)

	if len(employees) == 0 {
		return &Result{
			RunID:             runID,
			AssuranceScores:   map[string]assurance.Score{},
			ConsensusResults:  map[string]*consensus.Result{},
			StrategyAgreement: []consensus.PairAgreement{},
			Summary:           Summary{},
		}, nil
	}

	if err := validateSnapshot(snap, employees); err != nil {
		return nil, err
	}

	feats := features.Extract(employees, snap, snap.SnapshotTime)
	employeeIDs := features.SortedIDs(feats)
	managerChains := features.ManagerChains(employees)

	calc := proximity.NewCalculator(cfg.Proximity, managerChains)
	matrix, err := proximity.BuildMatrix(ctx, employeeIDs, feats, calc, cfg.BlockByLOB)
	if err != nil {
		return nil, fmt.Errorf("pipeline: building proximity matrix: %w", err)
	}

	allAssignments := clustering.RunAll(ctx, matrix.Dense, employeeIDs, cfg.Clustering, clusteringStrategies(cfg.Clustering.Strategies))
	consensusResults := consensus.Analyze(allAssignments, employeeIDs, cfg.Clustering)
	strategyAgreement := consensus.StrategyAgreement(labelsByStrategy(allAssignments, employeeIDs))

	// Only grants held by a participating employee (active, and within
	// any LOB filter) are scored — an employee who never entered feature
	// extraction or clustering has no peer group to score their grants
	// against.
	participating := make(map[string]struct{}, len(employeeIDs))
	for _, id := range employeeIDs {
		participating[id] = struct{}{}
	}
	grants := make([]snapshot.AccessGrant, 0, len(snap.AccessGrants))
	for _, g := range snap.AccessGrants {
		if _, ok := participating[g.EmployeeID]; ok {
			grants = append(grants, g)
		}
	}

	accessByEmployee := buildAccessIndex(grants)
	resourcesByID := buildResourceIndex(snap.Resources)
	usageByGrant := buildUsageIndex(grants, snap.ActivitySummaries, snap.SnapshotTime)

	scores, err := scoreGrants(ctx, grants, consensusResults, accessByEmployee, resourcesByID, usageByGrant, cfg.Assurance)
	if err != nil {
		return nil, fmt.Errorf("pipeline: scoring grants: %w", err)
	}

	summary := summarize(employees, grants, scores, consensusResults)

	log.Printf("run %s: complete — %d employees, %d grants, %d high-assurance, %d needing review",
		runID, summary.TotalEmployees, summary.TotalGrants, summary.HighAssuranceCount, summary.NeedsHumanReviewCount)

	return &Result{
		RunID:             runID,
		Summary:           summary,
		AssuranceScores:   scores,
		ConsensusResults:  consensusResults,
		StrategyAgreement: strategyAgreement,
	}, nil
}

// labelsByStrategy flattens clustering.Results into the
// map[string][]int shape consensus.StrategyAgreement compares, with
// each strategy's labels ordered by employeeIDs so that positions line
// up across strategies regardless of map iteration order.
func labelsByStrategy(results clustering.Results, employeeIDs []string) map[string][]int {
	out := make(map[string][]int, len(results))
	for strategy, assignments := range results {
		labels := make([]int, len(employeeIDs))
		for i, id := range employeeIDs {
			labels[i] = assignments[id].ClusterID
		}
		out[string(strategy)] = labels
	}
	return out
}

// filterActive restricts employees to those with Status == "Active".
// Only active employees participate in feature extraction, proximity,
// clustering, and scoring.
func filterActive(employees []snapshot.Employee) []snapshot.Employee {
	out := make([]snapshot.Employee, 0, len(employees))
	for _, e := range employees {
		if e.Status == "Active" {
			out = append(out, e)
		}
	}
	return out
}

// clusteringStrategies converts the configured strategy names to
// clustering.Strategy values, returning nil (meaning "run all four") when
// the config leaves the subset unset.
func clusteringStrategies(names []string) []clustering.Strategy {
	if len(names) == 0 {
		return nil
	}
	strategies := make([]clustering.Strategy, len(names))
	for i, name := range names {
		strategies[i] = clustering.Strategy(name)
	}
	return strategies
}

// filterByLOB restricts the employee set to one line of business, by ID
// or by name, when filter is non-empty. An unresolvable filter is a
// snapshot error: the caller asked to scope a run to a LOB that does
// not exist in this snapshot.
func filterByLOB(snap snapshot.Snapshot, filter string) ([]snapshot.Employee, error) {
	if filter == "" {
		return snap.Employees, nil
	}

	lobID := filter
	found := false
	for _, lob := range snap.LOBs {
		if lob.ID == filter || lob.Name == filter {
			lobID = lob.ID
			found = true
			break
		}
	}
	if !found {
		return nil, &snapshot.Error{Record: "lob", ID: filter, Reason: "lob filter does not match any known LOB ID or name"}
	}

	subLOBsInLOB := make(map[string]struct{})
	for _, sl := range snap.SubLOBs {
		if sl.LOBID == lobID {
			subLOBsInLOB[sl.ID] = struct{}{}
		}
	}
	teamsInLOB := make(map[string]struct{})
	for _, t := range snap.Teams {
		if t.LOBID == lobID {
			teamsInLOB[t.ID] = struct{}{}
			continue
		}
		if _, ok := subLOBsInLOB[t.SubLOBID]; ok {
			teamsInLOB[t.ID] = struct{}{}
		}
	}

	var out []snapshot.Employee
	for _, e := range snap.Employees {
		if _, ok := teamsInLOB[e.TeamID]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// validateSnapshot checks that every resource carries a recognized
// sensitivity level and that every grant references a known resource.
// Grant employee references and activity records are not checked here.
func validateSnapshot(snap snapshot.Snapshot, employees []snapshot.Employee) error {
	known := make(map[string]struct{}, len(employees))
	for _, e := range employees {
		known[e.ID] = struct{}{}
	}
	resourceIDs := make(map[string]struct{}, len(snap.Resources))
	for _, r := range snap.Resources {
		resourceIDs[r.ID] = struct{}{}
	}
	for _, r := range snap.Resources {
		switch r.SensitivityLevel {
		case "Public", "Internal", "Confidential", "Critical":
		default:
			return &snapshot.Error{Record: "resource", ID: r.ID, Reason: fmt.Sprintf("unrecognized sensitivity level %q", r.SensitivityLevel)}
		}
	}
	for _, g := range snap.AccessGrants {
		if _, ok := resourceIDs[g.ResourceID]; !ok {
			return &snapshot.Error{Record: "access_grant", ID: g.ID, Reason: "references unknown resource " + g.ResourceID}
		}
	}
	return nil
}

func buildAccessIndex(grants []snapshot.AccessGrant) map[string]map[string]struct{} {
	idx := make(map[string]map[string]struct{})
	for _, g := range grants {
		if idx[g.EmployeeID] == nil {
			idx[g.EmployeeID] = make(map[string]struct{})
		}
		idx[g.EmployeeID][g.ResourceID] = struct{}{}
	}
	return idx
}

func buildResourceIndex(resources []snapshot.Resource) map[string]snapshot.Resource {
	idx := make(map[string]snapshot.Resource, len(resources))
	for _, r := range resources {
		idx[r.ID] = r
	}
	return idx
}

// buildUsageIndex reduces the activity summaries for each grant's
// employee/resource pair into the assurance.Usage shape, anchored to
// snapshotTime rather than the wall clock for determinism. Dormancy is
// gated on the lifetime TotalAccessCount, not the 30-day trailing
// count, and LastAccessedDaysAgo is derived from LastAccessedAt
// whenever that timestamp is present, independent of any count —
// otherwise every grant last touched more than 30 days ago would be
// misclassified as dormant instead of occasional or stale.
func buildUsageIndex(grants []snapshot.AccessGrant, activity []snapshot.ActivitySummary, snapshotTime time.Time) map[string]assurance.Usage {
	byPair := make(map[string]snapshot.ActivitySummary, len(activity))
	for _, a := range activity {
		byPair[a.EmployeeID+"\x00"+a.ResourceID] = a
	}

	usage := make(map[string]assurance.Usage, len(grants))
	for _, g := range grants {
		daysSinceGrant := int(snapshotTime.Sub(g.GrantedAt.Time).Hours() / 24)

		a, ok := byPair[g.EmployeeID+"\x00"+g.ResourceID]
		if !ok || a.TotalAccessCount == 0 {
			usage[g.ID] = assurance.Usage{DaysSinceGrant: daysSinceGrant}
			continue
		}

		u := assurance.Usage{
			TotalAccessCount: a.TotalAccessCount,
			AccessCount30d:   a.AccessCount30d,
			AccessCount90d:   a.AccessCount90d,
			DaysSinceGrant:   daysSinceGrant,
		}
		if !a.LastAccessedAt.IsZero() {
			daysAgo := int(snapshotTime.Sub(a.LastAccessedAt.Time).Hours() / 24)
			u.LastAccessedDaysAgo = &daysAgo
		}
		usage[g.ID] = u
	}
	return usage
}

func scoreGrants(ctx context.Context, grants []snapshot.AccessGrant, consensusResults map[string]*consensus.Result, accessByEmployee map[string]map[string]struct{}, resourcesByID map[string]snapshot.Resource, usageByGrant map[string]assurance.Usage, cfg config.AssuranceConfig) (map[string]assurance.Score, error) {
	scores := make(map[string]assurance.Score, len(grants))

	g, _ := errgroup.WithContext(ctx)
	type result struct {
		grantID string
		score   assurance.Score
	}
	resultsCh := make(chan result, len(grants))

	for _, grant := range grants {
		grant := grant
		g.Go(func() error {
			resource, ok := resourcesByID[grant.ResourceID]
			if !ok {
				return fmt.Errorf("grant %s references unknown resource %s", grant.ID, grant.ResourceID)
			}
			var peerIDs []string
			if cr, ok := consensusResults[grant.EmployeeID]; ok {
				peerIDs = cr.PeerIDs
			}
			usage := usageByGrant[grant.ID]
			score := assurance.Calculate(grant.ID, grant.EmployeeID, grant.ResourceID, resource.SensitivityLevel, resource.Name, peerIDs, accessByEmployee, usage, cfg)
			resultsCh <- result{grant.ID, score}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(resultsCh)
	for r := range resultsCh {
		scores[r.grantID] = r.score
	}
	return scores, nil
}

func summarize(employees []snapshot.Employee, grants []snapshot.AccessGrant, scores map[string]assurance.Score, consensusResults map[string]*consensus.Result) Summary {
	s := Summary{
		TotalEmployees: len(employees),
		TotalGrants:    len(grants),
	}

	assuranceSummary := assurance.Summarize(scores)
	s.HighAssuranceCount = assuranceSummary.High
	s.MediumAssuranceCount = assuranceSummary.Medium
	s.LowAssuranceCount = assuranceSummary.Low
	s.AutoCertifyEligibleCount = assuranceSummary.AutoCertifyEligible

	for _, empID := range sortedResultKeys(consensusResults) {
		if consensusResults[empID].NeedsHumanReview {
			s.NeedsHumanReviewCount++
			s.ClusteringDisagreementCount++
		}
	}

	return s
}

func sortedResultKeys(m map[string]*consensus.Result) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
