package clustering

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cbchhaya/aras/internal/config"
)

// Hierarchical runs agglomerative clustering over a proximity matrix
// using the configured linkage criterion (average, complete, or
// single — ward is rejected at config-validation time since it needs a
// Euclidean embedding this pipeline doesn't have). When cfg specifies 0
// clusters, k is auto-selected via silhouette search.
func Hierarchical(prox *mat.Dense, employeeIDs []string, cfg config.ClusteringConfig) Assignments {
	n := len(employeeIDs)
	if n == 0 {
		return Assignments{}
	}
	dist := toDistance(prox)

	k := cfg.HierarchicalClusterCount
	var labels []int
	if k == 0 {
		maxK := cfg.CentroidMaxClusters
		if cfg.CentroidMinClusterSize > 0 {
			byMinSize := n / cfg.CentroidMinClusterSize
			if byMinSize < maxK {
				maxK = byMinSize
			}
		}
		if maxK < 2 {
			maxK = 2
		}
		if maxK > n-1 && n > 2 {
			maxK = n - 1
		}
		_, labels, _ = selectK(dist, 2, maxK, func(candidateK int) []int {
			return agglomerate(dist, candidateK, cfg.HierarchicalLinkage)
		})
	} else {
		labels = agglomerate(dist, k, cfg.HierarchicalLinkage)
	}
	if labels == nil {
		labels = make([]int, n)
	}

	return assignmentsFromLabels(employeeIDs, labels, StrategyHierarchical, prox, nil)
}

// agglomerate merges the closest pair of clusters repeatedly until only
// k remain, using the given linkage criterion to measure inter-cluster
// distance. Ties are broken by lowest cluster-pair index for determinism.
func agglomerate(dist *mat.Dense, k int, linkage config.HierarchicalLinkage) []int {
	n, _ := dist.Dims()
	if k <= 0 || k > n {
		return nil
	}

	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	for len(clusters) > k {
		bestI, bestJ := -1, -1
		bestDist := 0.0
		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				d := clusterDistance(dist, clusters[i], clusters[j], linkage)
				if bestI < 0 || d < bestDist {
					bestDist = d
					bestI, bestJ = i, j
				}
			}
		}
		clusters[bestI] = append(clusters[bestI], clusters[bestJ]...)
		clusters = append(clusters[:bestJ], clusters[bestJ+1:]...)
	}

	labels := make([]int, n)
	for clusterID, members := range clusters {
		for _, idx := range members {
			labels[idx] = clusterID
		}
	}
	return labels
}

func clusterDistance(dist *mat.Dense, a, b []int, linkage config.HierarchicalLinkage) float64 {
	switch linkage {
	case config.LinkageComplete:
		max := 0.0
		for _, i := range a {
			for _, j := range b {
				if d := dist.At(i, j); d > max {
					max = d
				}
			}
		}
		return max
	case config.LinkageSingle:
		min := dist.At(a[0], b[0])
		for _, i := range a {
			for _, j := range b {
				if d := dist.At(i, j); d < min {
					min = d
				}
			}
		}
		return min
	default: // average
		sum := 0.0
		for _, i := range a {
			for _, j := range b {
				sum += dist.At(i, j)
			}
		}
		return sum / float64(len(a)*len(b))
	}
}
