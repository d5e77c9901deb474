package clustering

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/cbchhaya/aras/internal/config"
)

// Centroid runs k-medoid clustering (PAM) over a proximity matrix. A
// real k-means needs a vector space to average into; with only a
// precomputed distance matrix, the medoid (the member minimizing total
// in-cluster distance) is the natural substitute. When cfg specifies 0
// clusters, k is auto-selected via silhouette search.
func Centroid(prox *mat.Dense, employeeIDs []string, cfg config.ClusteringConfig) Assignments {
	n := len(employeeIDs)
	if n == 0 {
		return Assignments{}
	}
	dist := toDistance(prox)

	k := cfg.CentroidClusterCount
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
			return pam(dist, candidateK, cfg.RngSeed)
		})
	} else {
		labels = pam(dist, k, cfg.RngSeed)
	}
	if labels == nil {
		labels = make([]int, n)
	}

	medoids := medoidsOf(dist, labels)
	return centroidAssignments(employeeIDs, labels, medoids, dist)
}

// medoidsOf returns, for each cluster label present in labels, the index
// minimizing total in-cluster distance — the medoid pam() converged to.
func medoidsOf(dist *mat.Dense, labels []int) map[int]int {
	membersByLabel := make(map[int][]int)
	for i, l := range labels {
		membersByLabel[l] = append(membersByLabel[l], i)
	}
	medoids := make(map[int]int, len(membersByLabel))
	for label, members := range membersByLabel {
		best, bestCost := members[0], totalCost(dist, members[0], members)
		for _, candidate := range members[1:] {
			if cost := totalCost(dist, candidate, members); cost < bestCost {
				best, bestCost = candidate, cost
			}
		}
		medoids[label] = best
	}
	return medoids
}

// centroidAssignments builds Assignments with the spec's centroid
// confidence formula: 1 − dist(i, own medoid) / (max distance any
// employee has to its own assigned medoid), a single run-wide
// normalizer rather than a per-row one.
func centroidAssignments(employeeIDs []string, labels []int, medoids map[int]int, dist *mat.Dense) Assignments {
	n, _ := dist.Dims()

	maxMedoidDist := 0.0
	for k := 0; k < n; k++ {
		if d := dist.At(k, medoids[labels[k]]); d > maxMedoidDist {
			maxMedoidDist = d
		}
	}

	result := make(Assignments, len(employeeIDs))
	for i, id := range employeeIDs {
		clusterID := labels[i]
		medoid := medoids[clusterID]

		confidence := 1.0
		if maxMedoidDist > 0 {
			confidence = 1.0 - dist.At(i, medoid)/maxMedoidDist
		}

		result[id] = Assignment{
			EmployeeID: id,
			Strategy:   StrategyCentroid,
			ClusterID:  clusterID,
			Confidence: confidence,
			IsOutlier:  false,
		}
	}
	return result
}

// pam runs Partitioning Around Medoids to convergence with a
// seeded-random initial medoid set, so results are deterministic for a
// given (dist, k, seed).
func pam(dist *mat.Dense, k int, seed int64) []int {
	n, _ := dist.Dims()
	if k <= 0 || k > n {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	medoids := rng.Perm(n)[:k]

	labels := make([]int, n)
	for iter := 0; iter < 100; iter++ {
		assignToNearestMedoid(dist, medoids, labels)

		improved := false
		for mi, medoid := range medoids {
			members := membersOf(labels, mi)
			bestCost := totalCost(dist, medoid, members)
			bestCandidate := medoid
			for _, candidate := range members {
				if candidate == medoid {
					continue
				}
				cost := totalCost(dist, candidate, members)
				if cost < bestCost {
					bestCost = cost
					bestCandidate = candidate
				}
			}
			if bestCandidate != medoid {
				medoids[mi] = bestCandidate
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	assignToNearestMedoid(dist, medoids, labels)
	return labels
}

func assignToNearestMedoid(dist *mat.Dense, medoids []int, labels []int) {
	n, _ := dist.Dims()
	for i := 0; i < n; i++ {
		best := 0
		bestDist := dist.At(i, medoids[0])
		for mi := 1; mi < len(medoids); mi++ {
			d := dist.At(i, medoids[mi])
			if d < bestDist {
				bestDist = d
				best = mi
			}
		}
		labels[i] = best
	}
}

func membersOf(labels []int, cluster int) []int {
	var members []int
	for i, l := range labels {
		if l == cluster {
			members = append(members, i)
		}
	}
	return members
}

func totalCost(dist *mat.Dense, candidate int, members []int) float64 {
	total := 0.0
	for _, m := range members {
		total += dist.At(candidate, m)
	}
	return total
}

// toDistance converts a proximity matrix (higher = closer) to a distance
// matrix (lower = closer) via distance = 1 - proximity.
func toDistance(prox *mat.Dense) *mat.Dense {
	n, _ := prox.Dims()
	dist := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dist.Set(i, j, 1-prox.At(i, j))
		}
	}
	return dist
}

// assignmentsFromLabels converts a labeling (by matrix index) into
// Assignments, computing confidence as the mean proximity to other
// members of the same cluster (1.0 for singleton clusters). outlierLabel,
// if non-nil, marks a label value as "outlier" (density strategy only).
func assignmentsFromLabels(employeeIDs []string, labels []int, strategy Strategy, prox *mat.Dense, outlierLabel *int) Assignments {
	result := make(Assignments, len(employeeIDs))
	for i, id := range employeeIDs {
		clusterID := labels[i]
		isOutlier := outlierLabel != nil && clusterID == *outlierLabel

		var confidence float64
		if isOutlier {
			confidence = 0.0
		} else {
			sum, count := 0.0, 0
			for j, otherLabel := range labels {
				if j != i && otherLabel == clusterID {
					sum += prox.At(i, j)
					count++
				}
			}
			if count > 0 {
				confidence = sum / float64(count)
			} else {
				confidence = 1.0
			}
		}

		result[id] = Assignment{
			EmployeeID: id,
			Strategy:   strategy,
			ClusterID:  clusterID,
			Confidence: confidence,
			IsOutlier:  isOutlier,
		}
	}
	return result
}
