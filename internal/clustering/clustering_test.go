package clustering

import (
	"context"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/cbchhaya/aras/internal/config"
)

// twoBlockProximity builds a 6x6 proximity matrix with two obvious
// blocks {0,1,2} and {3,4,5}: high proximity within a block, low across.
func twoBlockProximity() (*mat.Dense, []string) {
	ids := []string{"e0", "e1", "e2", "e3", "e4", "e5"}
	n := len(ids)
	prox := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			switch {
			case i == j:
				prox.Set(i, j, 1.0)
			case (i < 3) == (j < 3):
				prox.Set(i, j, 0.9)
			default:
				prox.Set(i, j, 0.05)
			}
		}
	}
	return prox, ids
}

func clusterSetOf(assignments Assignments, ids []string) map[string]int {
	out := make(map[string]int, len(ids))
	for _, id := range ids {
		out[id] = assignments[id].ClusterID
	}
	return out
}

func sameGrouping(labels map[string]int, groupA, groupB []string) bool {
	for _, a := range groupA {
		for _, b := range groupA {
			if labels[a] != labels[b] {
				return false
			}
		}
	}
	for _, a := range groupB {
		for _, b := range groupB {
			if labels[a] != labels[b] {
				return false
			}
		}
	}
	for _, a := range groupA {
		for _, b := range groupB {
			if labels[a] == labels[b] {
				return false
			}
		}
	}
	return true
}

func TestCentroidAssignments_ConfidenceNormalizesByGlobalMaxMedoidDistance(t *testing.T) {
	ids := []string{"e0", "e1", "e2", "e3"}
	dist := mat.NewDense(4, 4, nil)
	set := func(i, j int, d float64) {
		dist.Set(i, j, d)
		dist.Set(j, i, d)
	}
	set(0, 1, 0.2)
	set(0, 2, 0.5)
	set(0, 3, 0.9)
	set(1, 2, 0.4)
	set(1, 3, 0.8)
	set(2, 3, 0.7)

	labels := []int{0, 0, 0, 1}
	medoids := map[int]int{0: 0, 1: 3}

	// Each point's distance to its own medoid is 0, 0.2, 0.5, 0 — the
	// global max across all of them is 0.5, not e1's or e2's own row
	// max (which would be 0.8 and 0.7 respectively, the distance to the
	// farthest *other* employee rather than to any assigned medoid).
	assignments := centroidAssignments(ids, labels, medoids, dist)

	want := map[string]float64{"e0": 1.0, "e1": 0.6, "e2": 0.0, "e3": 1.0}
	for id, expected := range want {
		if got := assignments[id].Confidence; !almostEqual(got, expected) {
			t.Errorf("%s: expected confidence %v, got %v", id, expected, got)
		}
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestCentroid_FindsTwoObviousBlocks(t *testing.T) {
	prox, ids := twoBlockProximity()
	cfg := config.DefaultClusteringConfig()
	cfg.CentroidClusterCount = 2

	assignments := Centroid(prox, ids, cfg)
	labels := clusterSetOf(assignments, ids)
	if !sameGrouping(labels, []string{"e0", "e1", "e2"}, []string{"e3", "e4", "e5"}) {
		t.Errorf("expected two clean blocks, got %+v", labels)
	}
}

func TestCentroid_Deterministic(t *testing.T) {
	prox, ids := twoBlockProximity()
	cfg := config.DefaultClusteringConfig()
	cfg.CentroidClusterCount = 2

	first := Centroid(prox, ids, cfg)
	for i := 0; i < 5; i++ {
		again := Centroid(prox, ids, cfg)
		for _, id := range ids {
			if first[id].ClusterID != again[id].ClusterID {
				t.Fatalf("run %d: non-deterministic cluster assignment for %s", i, id)
			}
		}
	}
}

func TestHierarchical_FindsTwoObviousBlocks(t *testing.T) {
	prox, ids := twoBlockProximity()
	cfg := config.DefaultClusteringConfig()
	cfg.HierarchicalClusterCount = 2

	assignments := Hierarchical(prox, ids, cfg)
	labels := clusterSetOf(assignments, ids)
	if !sameGrouping(labels, []string{"e0", "e1", "e2"}, []string{"e3", "e4", "e5"}) {
		t.Errorf("expected two clean blocks, got %+v", labels)
	}
}

func TestHierarchical_LinkageVariants(t *testing.T) {
	prox, ids := twoBlockProximity()
	for _, linkage := range []config.HierarchicalLinkage{config.LinkageAverage, config.LinkageComplete, config.LinkageSingle} {
		t.Run(string(linkage), func(t *testing.T) {
			cfg := config.DefaultClusteringConfig()
			cfg.HierarchicalClusterCount = 2
			cfg.HierarchicalLinkage = linkage
			assignments := Hierarchical(prox, ids, cfg)
			labels := clusterSetOf(assignments, ids)
			if !sameGrouping(labels, []string{"e0", "e1", "e2"}, []string{"e3", "e4", "e5"}) {
				t.Errorf("linkage %s: expected two clean blocks, got %+v", linkage, labels)
			}
		})
	}
}

func TestDensity_IsolatedPointIsOutlier(t *testing.T) {
	ids := []string{"e0", "e1", "e2", "e3", "isolated"}
	n := len(ids)
	prox := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				prox.Set(i, j, 1.0)
				continue
			}
			if i == 4 || j == 4 {
				prox.Set(i, j, 0.01) // isolated is far from everyone
				continue
			}
			prox.Set(i, j, 0.95)
		}
	}

	cfg := config.DefaultClusteringConfig()
	cfg.DBSCANEps = 0.3
	cfg.DBSCANMinSamples = 3

	assignments := Density(prox, ids, cfg)
	if !assignments["isolated"].IsOutlier {
		t.Errorf("expected the isolated point to be marked an outlier, got %+v", assignments["isolated"])
	}
	for _, id := range ids[:4] {
		if assignments[id].IsOutlier {
			t.Errorf("expected %s in the dense block to not be an outlier", id)
		}
	}
}

func TestGraphCommunity_IsolatedEmployeeGetsSingletonNotOutlier(t *testing.T) {
	ids := []string{"e0", "e1", "isolated"}
	n := len(ids)
	prox := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			switch {
			case i == j:
				prox.Set(i, j, 1.0)
			case i == 2 || j == 2:
				prox.Set(i, j, 0.0)
			default:
				prox.Set(i, j, 0.8)
			}
		}
	}

	cfg := config.DefaultClusteringConfig()
	cfg.GraphMinEdgeWeight = 0.2

	assignments := GraphCommunity(prox, ids, cfg)
	isolated := assignments["isolated"]
	if isolated.IsOutlier {
		t.Error("graph community strategy must never mark an employee an outlier — isolated nodes are singleton communities")
	}
	if isolated.ClusterID == assignments["e0"].ClusterID {
		t.Error("expected the isolated employee in its own cluster, distinct from the connected pair")
	}
	if assignments["e0"].ClusterID != assignments["e1"].ClusterID {
		t.Error("expected e0 and e1, which share a qualifying edge, in the same cluster")
	}
}

func TestRunAll_ProducesEveryStrategy(t *testing.T) {
	prox, ids := twoBlockProximity()
	cfg := config.DefaultClusteringConfig()
	cfg.CentroidClusterCount = 2
	cfg.HierarchicalClusterCount = 2

	results := RunAll(context.Background(), prox, ids, cfg, nil)
	for _, strategy := range AllStrategies {
		if _, ok := results[strategy]; !ok {
			t.Errorf("expected strategy %s to produce a result", strategy)
		}
	}
}

func TestUnionFind_ComponentsGroupCorrectly(t *testing.T) {
	uf := newUnionFind()
	uf.Union("a", "b")
	uf.Union("b", "c")
	uf.Find("isolated")

	components := uf.Components()
	var aRoot, isolatedRoot string
	for root, members := range components {
		for _, m := range members {
			if m == "a" {
				aRoot = root
			}
			if m == "isolated" {
				isolatedRoot = root
			}
		}
	}
	if len(components[aRoot]) != 3 {
		t.Errorf("expected a, b, c in one component, got %v", components[aRoot])
	}
	if aRoot == isolatedRoot {
		t.Errorf("expected isolated to be in its own component")
	}
}
