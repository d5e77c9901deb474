package clustering

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cbchhaya/aras/internal/config"
)

const outlierClusterID = -1

// Density runs DBSCAN over a proximity matrix, converted internally to a
// distance matrix. Unlike the other three strategies it does not take a
// target cluster count: it discovers clusters directly from density and
// marks isolated employees as outliers (ClusterID -1), which the
// consensus stage treats as "no peers from this strategy" rather than
// membership in a giant catch-all cluster.
func Density(prox *mat.Dense, employeeIDs []string, cfg config.ClusteringConfig) Assignments {
	n := len(employeeIDs)
	if n == 0 {
		return Assignments{}
	}
	dist := toDistance(prox)
	labels := dbscan(dist, cfg.DBSCANEps, cfg.DBSCANMinSamples)

	outlier := outlierClusterID
	return assignmentsFromLabels(employeeIDs, labels, StrategyDensity, prox, &outlier)
}

func dbscan(dist *mat.Dense, eps float64, minSamples int) []int {
	n, _ := dist.Dims()
	labels := make([]int, n)
	for i := range labels {
		labels[i] = outlierClusterID - 1 // "unvisited" sentinel, distinct from -1 noise
	}

	neighbors := func(i int) []int {
		var ns []int
		for j := 0; j < n; j++ {
			if j != i && dist.At(i, j) <= eps {
				ns = append(ns, j)
			}
		}
		return ns
	}

	nextCluster := 0
	for i := 0; i < n; i++ {
		if labels[i] != outlierClusterID-1 {
			continue // already visited
		}
		neigh := neighbors(i)
		if len(neigh)+1 < minSamples {
			labels[i] = outlierClusterID
			continue
		}

		cluster := nextCluster
		nextCluster++
		labels[i] = cluster

		queue := append([]int{}, neigh...)
		for qi := 0; qi < len(queue); qi++ {
			j := queue[qi]
			if labels[j] == outlierClusterID {
				labels[j] = cluster
			}
			if labels[j] != outlierClusterID-1 {
				continue
			}
			labels[j] = cluster
			jNeigh := neighbors(j)
			if len(jNeigh)+1 >= minSamples {
				queue = append(queue, jNeigh...)
			}
		}
	}

	return labels
}
