package clustering

import "gonum.org/v1/gonum/mat"

// silhouetteScore computes the mean silhouette coefficient for a
// labeling over a precomputed distance matrix. It returns false if the
// labeling doesn't have at least two clusters and at least one point
// outside each cluster, the conditions under which silhouette is
// undefined.
func silhouetteScore(dist *mat.Dense, labels []int) (float64, bool) {
	n, _ := dist.Dims()
	if n == 0 {
		return 0, false
	}

	members := make(map[int][]int)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}
	if len(members) < 2 {
		return 0, false
	}

	total := 0.0
	counted := 0
	for i := 0; i < n; i++ {
		own := labels[i]
		ownMembers := members[own]
		if len(ownMembers) <= 1 {
			continue // a(i) undefined for singleton clusters; skip per convention
		}

		a := meanDistTo(dist, i, ownMembers, true)

		bestB := -1.0
		for cluster, idxs := range members {
			if cluster == own {
				continue
			}
			d := meanDistTo(dist, i, idxs, false)
			if bestB < 0 || d < bestB {
				bestB = d
			}
		}
		if bestB < 0 {
			continue
		}

		maxAB := a
		if bestB > maxAB {
			maxAB = bestB
		}
		if maxAB == 0 {
			continue
		}
		s := (bestB - a) / maxAB
		total += s
		counted++
	}

	if counted == 0 {
		return 0, false
	}
	return total / float64(counted), true
}

func meanDistTo(dist *mat.Dense, i int, members []int, excludeSelf bool) float64 {
	sum := 0.0
	count := 0
	for _, j := range members {
		if excludeSelf && j == i {
			continue
		}
		sum += dist.At(i, j)
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// selectK tries every candidate cluster count from minK to maxK via
// cluster, scoring each labeling with silhouetteScore, and returns the
// best-scoring k, its labels, and its score. cluster must be
// deterministic for a given k to keep selectK's result reproducible.
func selectK(dist *mat.Dense, minK, maxK int, cluster func(k int) []int) (bestK int, bestLabels []int, bestScore float64) {
	bestK = minK
	bestScore = -1
	for k := minK; k <= maxK; k++ {
		labels := cluster(k)
		if labels == nil {
			continue
		}
		if !hasMultipleClusters(labels) {
			continue
		}
		score, ok := silhouetteScore(dist, labels)
		if !ok {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestK = k
			bestLabels = labels
		}
	}
	if bestLabels == nil {
		// Fall back to whatever cluster(minK) produces, even if silhouette
		// couldn't score it, so callers always get a labeling.
		bestLabels = cluster(minK)
		bestK = minK
	}
	return bestK, bestLabels, bestScore
}

func hasMultipleClusters(labels []int) bool {
	seen := make(map[int]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
		if len(seen) > 1 {
			return true
		}
	}
	return false
}
