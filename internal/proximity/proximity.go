// Package proximity computes multi-dimensional peer-proximity scores
// between employees and assembles them into a symmetric proximity
// matrix for the clustering stage.
package proximity

import (
	"context"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cbchhaya/aras/internal/config"
	"github.com/cbchhaya/aras/internal/features"
)

// Components breaks an overall proximity score into its four
// contributing dimensions, primarily useful for explaining a score to a
// reviewer or for test assertions.
type Components struct {
	Structural float64
	Functional float64
	Behavioral float64
	Temporal   float64
}

// Calculator computes proximity scores using a fixed set of weights.
type Calculator struct {
	weights       config.ProximityWeights
	managerChains map[string][]string
}

// NewCalculator returns a Calculator, normalizing weights that don't sum
// to 1.0. managerChains may be nil if structural proximity shouldn't
// consider manager-chain distance.
func NewCalculator(weights config.ProximityWeights, managerChains map[string][]string) *Calculator {
	if !weights.Valid() {
		weights = weights.Normalized()
	}
	return &Calculator{weights: weights, managerChains: managerChains}
}

// Structural returns the organizational-placement proximity between two
// employees: shared manager, manager-chain distance, shared team,
// sub-LOB, LOB, and location.
func (c *Calculator) Structural(a, b *features.EmployeeFeatures) float64 {
	score := 0.0

	if a.ManagerID != "" && a.ManagerID == b.ManagerID {
		score += 0.3
	}

	if c.managerChains != nil {
		chainA := c.managerChains[a.EmployeeID]
		chainB := c.managerChains[b.EmployeeID]
		if dist, ok := minCommonAncestorDistance(chainA, chainB); ok {
			score += 0.2 / (1.0 + float64(dist))
		}
	}

	if a.TeamID != "" && a.TeamID == b.TeamID {
		score += 0.2
	}
	if a.SubLOBID != "" && a.SubLOBID == b.SubLOBID {
		score += 0.15
	}
	if a.LOBID != "" && a.LOBID == b.LOBID {
		score += 0.1
	}
	if a.LocationID != "" && a.LocationID == b.LocationID {
		score += 0.05
	}

	return math.Min(score, 1.0)
}

// minCommonAncestorDistance finds the smallest chainA-index + chainB-index
// sum across any manager ID common to both chains.
func minCommonAncestorDistance(chainA, chainB []string) (int, bool) {
	idxB := make(map[string]int, len(chainB))
	for i, id := range chainB {
		if _, exists := idxB[id]; !exists {
			idxB[id] = i
		}
	}

	found := false
	min := 0
	for i, id := range chainA {
		if j, ok := idxB[id]; ok {
			dist := i + j
			if !found || dist < min {
				min = dist
				found = true
			}
		}
	}
	return min, found
}

// Functional returns job-attribute proximity: shared job code, job
// family, job-level closeness, and shared cost center.
func (c *Calculator) Functional(a, b *features.EmployeeFeatures) float64 {
	score := 0.0

	if a.JobCode != "" && a.JobCode == b.JobCode {
		score += 0.35
	}
	if a.JobFamily != "" && a.JobFamily == b.JobFamily {
		score += 0.25
	}
	if a.JobLevel > 0 && b.JobLevel > 0 {
		levelDiff := math.Abs(float64(a.JobLevel - b.JobLevel))
		levelScore := math.Max(0, 1.0-levelDiff/7.0)
		score += 0.2 * levelScore
	}
	if a.CostCenterID != "" && a.CostCenterID == b.CostCenterID {
		score += 0.2
	}

	return math.Min(score, 1.0)
}

// Behavioral returns access/activity-pattern proximity: Jaccard overlap
// of granted resources plus cosine similarity of usage-intensity
// vectors.
func (c *Calculator) Behavioral(a, b *features.EmployeeFeatures) float64 {
	score := 0.0

	if len(a.AccessSet) > 0 || len(b.AccessSet) > 0 {
		inter, union := 0, 0
		seen := make(map[string]struct{}, len(a.AccessSet)+len(b.AccessSet))
		for r := range a.AccessSet {
			seen[r] = struct{}{}
			if _, ok := b.AccessSet[r]; ok {
				inter++
			}
		}
		for r := range b.AccessSet {
			seen[r] = struct{}{}
		}
		union = len(seen)
		if union > 0 {
			score += 0.5 * float64(inter) / float64(union)
		}
	}

	if len(a.ActivityVector) > 0 && len(b.ActivityVector) > 0 {
		resources := make(map[string]struct{}, len(a.ActivityVector)+len(b.ActivityVector))
		for r := range a.ActivityVector {
			resources[r] = struct{}{}
		}
		for r := range b.ActivityVector {
			resources[r] = struct{}{}
		}
		if len(resources) > 0 {
			ordered := make([]string, 0, len(resources))
			for r := range resources {
				ordered = append(ordered, r)
			}
			sort.Strings(ordered)

			vecA := make([]float64, len(ordered))
			vecB := make([]float64, len(ordered))
			for i, r := range ordered {
				vecA[i] = a.ActivityVector[r]
				vecB[i] = b.ActivityVector[r]
			}

			normA := floats.Norm(vecA, 2)
			normB := floats.Norm(vecB, 2)
			if normA > 0 && normB > 0 {
				cosine := floats.Dot(vecA, vecB) / (normA * normB)
				score += 0.5 * cosine
			}
		}
	}

	return math.Min(score, 1.0)
}

// Temporal returns career-stage proximity: Gaussian similarity of tenure
// and time-in-role, plus a bonus for sharing a hire cohort.
func (c *Calculator) Temporal(a, b *features.EmployeeFeatures) float64 {
	score := 0.0

	if a.TenureDays > 0 && b.TenureDays > 0 {
		diff := float64(a.TenureDays - b.TenureDays)
		const sigma = 365.0
		score += 0.4 * math.Exp(-(diff * diff) / (2 * sigma * sigma))
	}
	if a.TimeInRoleDays > 0 && b.TimeInRoleDays > 0 {
		diff := float64(a.TimeInRoleDays - b.TimeInRoleDays)
		const sigma = 180.0
		score += 0.3 * math.Exp(-(diff * diff) / (2 * sigma * sigma))
	}
	if a.HireQuarter != "" && a.HireQuarter == b.HireQuarter {
		score += 0.3
	}

	return math.Min(score, 1.0)
}

// Proximity returns the overall weighted proximity between two
// employees, plus its four dimensional components.
func (c *Calculator) Proximity(a, b *features.EmployeeFeatures) (float64, Components) {
	comp := Components{
		Structural: c.Structural(a, b),
		Functional: c.Functional(a, b),
		Behavioral: c.Behavioral(a, b),
		Temporal:   c.Temporal(a, b),
	}
	overall := c.weights.Structural*comp.Structural +
		c.weights.Functional*comp.Functional +
		c.weights.Behavioral*comp.Behavioral +
		c.weights.Temporal*comp.Temporal
	return overall, comp
}

// Matrix is a symmetric N×N proximity matrix with a 1.0 diagonal
// (self-similarity) and the employee-ID ↔ row/column index mapping used
// to build it.
type Matrix struct {
	Dense     *mat.Dense
	IDs       []string
	indexByID map[string]int
}

// IndexOf returns the row/column index for an employee ID, or -1 if the
// ID wasn't part of this matrix.
func (m *Matrix) IndexOf(id string) int {
	if i, ok := m.indexByID[id]; ok {
		return i
	}
	return -1
}

// At returns the proximity between employees a and b, or 0 if either ID
// is outside the matrix.
func (m *Matrix) At(a, b string) float64 {
	i, j := m.IndexOf(a), m.IndexOf(b)
	if i < 0 || j < 0 {
		return 0
	}
	return m.Dense.At(i, j)
}

// BuildMatrix computes the pairwise proximity matrix over employeeIDs.
// When blockByLOB is true, only employees sharing a LOB are compared
// (employees with no LOB are grouped under a synthetic "unknown" LOB),
// which is a performance optimization, not a correctness requirement —
// cross-LOB pairs are simply left at proximity 0 rather than computed.
// Candidate pairs are dealt round-robin across worker goroutines.
func BuildMatrix(ctx context.Context, employeeIDs []string, feats map[string]*features.EmployeeFeatures, calc *Calculator, blockByLOB bool) (*Matrix, error) {
	n := len(employeeIDs)
	dense := mat.NewDense(n, n, nil)
	indexByID := make(map[string]int, n)
	for i, id := range employeeIDs {
		indexByID[id] = i
	}

	pairs := candidatePairs(employeeIDs, feats, blockByLOB)

	workers := runtime.NumCPU()
	if workers > len(pairs) {
		workers = len(pairs)
	}
	if workers < 1 {
		workers = 1
	}

	type result struct {
		i, j  int
		score float64
	}
	resultsCh := make(chan result, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	chunks := chunkPairs(pairs, workers)
	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			for _, p := range chunk {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				score, _ := calc.Proximity(feats[p.a], feats[p.b])
				resultsCh <- result{i: indexByID[p.a], j: indexByID[p.b], score: score}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(resultsCh)

	for r := range resultsCh {
		dense.Set(r.i, r.j, r.score)
		dense.Set(r.j, r.i, r.score)
	}
	for i := 0; i < n; i++ {
		dense.Set(i, i, 1.0)
	}

	return &Matrix{Dense: dense, IDs: employeeIDs, indexByID: indexByID}, nil
}

type pair struct{ a, b string }

func candidatePairs(employeeIDs []string, feats map[string]*features.EmployeeFeatures, blockByLOB bool) []pair {
	var pairs []pair
	if !blockByLOB {
		for i := 0; i < len(employeeIDs); i++ {
			for j := i + 1; j < len(employeeIDs); j++ {
				if feats[employeeIDs[i]] == nil || feats[employeeIDs[j]] == nil {
					continue
				}
				pairs = append(pairs, pair{employeeIDs[i], employeeIDs[j]})
			}
		}
		return pairs
	}

	groups := make(map[string][]string)
	for _, id := range employeeIDs {
		f := feats[id]
		if f == nil {
			continue
		}
		lob := f.LOBID
		if lob == "" {
			lob = "unknown"
		}
		groups[lob] = append(groups[lob], id)
	}

	lobs := make([]string, 0, len(groups))
	for lob := range groups {
		lobs = append(lobs, lob)
	}
	sort.Strings(lobs)

	for _, lob := range lobs {
		members := groups[lob]
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				pairs = append(pairs, pair{members[i], members[j]})
			}
		}
	}
	return pairs
}

func chunkPairs(pairs []pair, workers int) [][]pair {
	if workers <= 0 {
		workers = 1
	}
	chunks := make([][]pair, workers)
	for i, p := range pairs {
		w := i % workers
		chunks[w] = append(chunks[w], p)
	}
	return chunks
}

// FindPeers is a standalone convenience query returning the top-K
// employees closest to target by proximity, above minProximity. It is
// never called by the pipeline coordinator; it exists for ad hoc lookups
// (e.g. from a future UI), matching the source engine's own
// find_peers, which the engine also never calls internally.
func FindPeers(targetID string, feats map[string]*features.EmployeeFeatures, calc *Calculator, topK int, minProximity float64) []PeerMatch {
	target, ok := feats[targetID]
	if !ok {
		return nil
	}

	var matches []PeerMatch
	for _, id := range features.SortedIDs(feats) {
		if id == targetID {
			continue
		}
		score, comp := calc.Proximity(target, feats[id])
		if score >= minProximity {
			matches = append(matches, PeerMatch{EmployeeID: id, Proximity: score, Components: comp})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Proximity > matches[j].Proximity })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// PeerMatch is one result from FindPeers.
type PeerMatch struct {
	EmployeeID string
	Proximity  float64
	Components Components
}
