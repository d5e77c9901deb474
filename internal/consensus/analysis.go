// Package consensus reconciles the cluster assignments produced by the
// four independent clustering strategies into a single per-employee
// peer set and agreement score, flagging disagreement for human review.
package consensus

import (
	"sort"

	"github.com/cbchhaya/aras/internal/clustering"
	"github.com/cbchhaya/aras/internal/config"
)

// Result is one employee's reconciled view across every clustering
// strategy that produced an assignment for them.
type Result struct {
	EmployeeID string

	Assignments map[clustering.Strategy]clustering.Assignment

	ConsensusClusterID int
	ConsensusScore      float64
	StrategiesAgreeing  int
	TotalStrategies     int

	// PeerIDs is the union of cluster-mates across every strategy — the
	// set the assurance scorer reads from.
	PeerIDs []string
	// StrictPeerIDs is the intersection of cluster-mates across every
	// strategy with a non-empty peer set. Exposed for audit consumers
	// that need the stricter agreement; never read by the scorer.
	StrictPeerIDs []string
	PeerCount     int

	NeedsHumanReview   bool
	DisagreementReason string
}

// Analyze reconciles per-strategy assignments for every employee in
// employeeIDs into a Result, using cfg.ConsensusThreshold to decide when
// disagreement is severe enough to require human review.
func Analyze(allAssignments clustering.Results, employeeIDs []string, cfg config.ClusteringConfig) map[string]*Result {
	// Precompute, per strategy, the set of cluster-mates for every
	// employee so the O(n) peer-set scan below doesn't redo it per call.
	clusterMembers := make(map[clustering.Strategy]map[int][]string, len(allAssignments))
	for strategy, assignments := range allAssignments {
		byCluster := make(map[int][]string)
		for empID, a := range assignments {
			if a.IsOutlier {
				continue
			}
			byCluster[a.ClusterID] = append(byCluster[a.ClusterID], empID)
		}
		clusterMembers[strategy] = byCluster
	}

	results := make(map[string]*Result, len(employeeIDs))
	for _, empID := range employeeIDs {
		empAssignments := make(map[clustering.Strategy]clustering.Assignment)
		for strategy, assignments := range allAssignments {
			if a, ok := assignments[empID]; ok {
				empAssignments[strategy] = a
			}
		}

		total := len(empAssignments)
		if total == 0 {
			results[empID] = &Result{
				EmployeeID:         empID,
				NeedsHumanReview:   true,
				DisagreementReason: "No clustering results available",
			}
			continue
		}

		strategyNames := sortedStrategyNames(empAssignments)

		var peerSets []map[string]struct{}
		for _, strategy := range strategyNames {
			a := empAssignments[strategy]
			if a.IsOutlier {
				peerSets = append(peerSets, map[string]struct{}{})
				continue
			}
			members := clusterMembers[strategy][a.ClusterID]
			set := make(map[string]struct{}, len(members))
			for _, m := range members {
				if m != empID {
					set[m] = struct{}{}
				}
			}
			peerSets = append(peerSets, set)
		}

		consensusScore := 1.0
		if len(peerSets) >= 2 {
			var similarities []float64
			for i := 0; i < len(peerSets); i++ {
				for j := i + 1; j < len(peerSets); j++ {
					a, b := peerSets[i], peerSets[j]
					if len(a) == 0 && len(b) == 0 {
						continue
					}
					inter, union := jaccardCounts(a, b)
					jaccard := 1.0
					if union > 0 {
						jaccard = float64(inter) / float64(union)
					}
					similarities = append(similarities, jaccard)
				}
			}
			if len(similarities) > 0 {
				sum := 0.0
				for _, s := range similarities {
					sum += s
				}
				consensusScore = sum / float64(len(similarities))
			} else {
				consensusScore = 0.0
			}
		}

		var nonEmpty []map[string]struct{}
		for _, s := range peerSets {
			if len(s) > 0 {
				nonEmpty = append(nonEmpty, s)
			}
		}
		peerUnion := unionSets(nonEmpty)
		peerIntersection := intersectSets(nonEmpty)

		outlierVotes := 0
		for _, a := range empAssignments {
			if a.IsOutlier {
				outlierVotes++
			}
		}
		nonOutlierVotes := total - outlierVotes

		needsReview := false
		reason := ""
		switch {
		case consensusScore < cfg.ConsensusThreshold:
			needsReview = true
			reason = "Low consensus score across clustering strategies"
		case outlierVotes > 0 && nonOutlierVotes > 0:
			needsReview = true
			reason = "Outlier disagreement across clustering strategies"
		case len(peerIntersection) == 0 && len(peerUnion) > 0:
			needsReview = true
			reason = "No common peers across all strategies"
		}

		clusterCounts := make(map[int]int)
		for _, a := range empAssignments {
			if !a.IsOutlier {
				clusterCounts[a.ClusterID]++
			}
		}
		consensusClusterID := -1
		strategiesAgreeing := outlierVotes
		if len(clusterCounts) > 0 {
			ids := make([]int, 0, len(clusterCounts))
			for id := range clusterCounts {
				ids = append(ids, id)
			}
			sort.Ints(ids)
			bestID, bestCount := ids[0], clusterCounts[ids[0]]
			for _, id := range ids[1:] {
				if clusterCounts[id] > bestCount {
					bestID, bestCount = id, clusterCounts[id]
				}
			}
			consensusClusterID = bestID
			strategiesAgreeing = bestCount
		}

		results[empID] = &Result{
			EmployeeID:          empID,
			Assignments:         empAssignments,
			ConsensusClusterID:  consensusClusterID,
			ConsensusScore:      consensusScore,
			StrategiesAgreeing:  strategiesAgreeing,
			TotalStrategies:     total,
			PeerIDs:             sortedKeys(peerUnion),
			StrictPeerIDs:       sortedKeys(peerIntersection),
			PeerCount:           len(peerUnion),
			NeedsHumanReview:    needsReview,
			DisagreementReason:  reason,
		}
	}

	return results
}

func sortedStrategyNames(m map[clustering.Strategy]clustering.Assignment) []clustering.Strategy {
	names := make([]clustering.Strategy, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func jaccardCounts(a, b map[string]struct{}) (intersection, union int) {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	return intersection, len(seen)
}

func unionSets(sets []map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range sets {
		for k := range s {
			out[k] = struct{}{}
		}
	}
	return out
}

func intersectSets(sets []map[string]struct{}) map[string]struct{} {
	if len(sets) == 0 {
		return map[string]struct{}{}
	}
	out := make(map[string]struct{}, len(sets[0]))
	for k := range sets[0] {
		out[k] = struct{}{}
	}
	for _, s := range sets[1:] {
		for k := range out {
			if _, ok := s[k]; !ok {
				delete(out, k)
			}
		}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetClusterMembers returns every other employee sharing empID's cluster
// under a single named strategy, or nil if the strategy didn't run or
// empID is an outlier under it.
func GetClusterMembers(empID string, strategy clustering.Strategy, allAssignments clustering.Results) []string {
	assignments, ok := allAssignments[strategy]
	if !ok {
		return nil
	}
	a, ok := assignments[empID]
	if !ok || a.IsOutlier {
		return nil
	}

	var members []string
	for otherID, other := range assignments {
		if otherID != empID && other.ClusterID == a.ClusterID {
			members = append(members, otherID)
		}
	}
	sort.Strings(members)
	return members
}
