package clustering

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"

	"github.com/cbchhaya/aras/internal/config"
)

// proximityEdge is a qualifying edge between two employees, carrying the
// proximity score that survived the graph_min_edge_weight threshold.
type proximityEdge struct {
	a, b   string
	weight float64
}

// GraphCommunity builds an undirected weighted graph with an edge
// between any two employees whose proximity meets the configured
// threshold, then detects communities in two stages: a union-find pass
// finds connected components first (an employee with no qualifying edge
// is trivially its own singleton component), then gonum's modularity
// optimizer (the real Louvain-family implementation, not a stand-in)
// further splits any multi-member component into sub-communities.
func GraphCommunity(prox *mat.Dense, employeeIDs []string, cfg config.ClusteringConfig) Assignments {
	n := len(employeeIDs)
	if n == 0 {
		return Assignments{}
	}

	uf := newUnionFind()
	for _, id := range employeeIDs {
		uf.Find(id) // register every employee, even isolated ones
	}

	var edges []proximityEdge
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			w := prox.At(i, j)
			if w >= cfg.GraphMinEdgeWeight {
				edges = append(edges, proximityEdge{employeeIDs[i], employeeIDs[j], w})
				uf.Union(employeeIDs[i], employeeIDs[j])
			}
		}
	}

	edgesByComponent := make(map[string][]proximityEdge)
	for _, e := range edges {
		root := uf.Find(e.a)
		edgesByComponent[root] = append(edgesByComponent[root], e)
	}

	components := uf.Components()
	roots := make([]string, 0, len(components))
	for root := range components {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	clusterOf := make(map[string]int, n)
	nextClusterID := 0
	for _, root := range roots {
		members := components[root]
		sort.Strings(members)

		compEdges := edgesByComponent[root]
		if len(members) <= 1 || len(compEdges) == 0 {
			for _, m := range members {
				clusterOf[m] = nextClusterID
			}
			nextClusterID++
			continue
		}

		subClusters := modularize(members, compEdges, cfg.GraphResolution, cfg.RngSeed)
		for _, sub := range subClusters {
			for _, m := range sub {
				clusterOf[m] = nextClusterID
			}
			nextClusterID++
		}
	}

	result := make(Assignments, n)
	indexByID := make(map[string]int, n)
	for i, id := range employeeIDs {
		indexByID[id] = i
	}
	for _, id := range employeeIDs {
		clusterID := clusterOf[id]
		idx := indexByID[id]

		neighborSum, neighborCount := 0.0, 0
		for _, other := range employeeIDs {
			if other == id || clusterOf[other] != clusterID {
				continue
			}
			w := prox.At(idx, indexByID[other])
			if w >= cfg.GraphMinEdgeWeight {
				neighborSum += w
				neighborCount++
			}
		}

		confidence := 0.0
		if neighborCount > 0 {
			confidence = neighborSum / float64(neighborCount)
		}

		result[id] = Assignment{
			EmployeeID: id,
			Strategy:   StrategyGraphCommunity,
			ClusterID:  clusterID,
			Confidence: confidence,
			IsOutlier:  false,
		}
	}
	return result
}

// modularize runs gonum's modularity-maximization community detection
// over the subgraph induced by members and their internal edges,
// returning the resulting member-ID groups.
func modularize(members []string, edges []proximityEdge, resolution float64, seed int64) [][]string {
	idOf := make(map[string]int64, len(members))
	nameOf := make(map[int64]string, len(members))
	for i, m := range members {
		idOf[m] = int64(i)
		nameOf[int64(i)] = m
	}

	g := simple.NewWeightedUndirectedGraph(0, 0)
	for _, m := range members {
		g.AddNode(simple.Node(idOf[m]))
	}
	for _, e := range edges {
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(idOf[e.a]), simple.Node(idOf[e.b]), e.weight))
	}

	reduced := community.Modularize(g, resolution, rand.NewSource(seed))

	var groups [][]string
	for _, nodes := range reduced.Structure() {
		group := make([]string, 0, len(nodes))
		for _, nd := range nodes {
			group = append(group, nameOf[nd.ID()])
		}
		sort.Strings(group)
		groups = append(groups, group)
	}
	return groups
}

var _ graph.WeightedUndirected = (*simple.WeightedUndirectedGraph)(nil)
