// Package clustering runs four independent strategies for grouping
// employees into peer clusters over a precomputed proximity matrix, and
// exposes the machinery (silhouette search, union-find) they share.
package clustering

// Strategy names one of the four clustering algorithms.
type Strategy string

const (
	StrategyCentroid       Strategy = "centroid"
	StrategyHierarchical   Strategy = "hierarchical"
	StrategyDensity        Strategy = "density"
	StrategyGraphCommunity Strategy = "graph_community"
)

// AllStrategies lists every strategy in a fixed order, used whenever the
// caller doesn't restrict to a subset.
var AllStrategies = []Strategy{StrategyCentroid, StrategyHierarchical, StrategyDensity, StrategyGraphCommunity}

// Assignment is one employee's cluster assignment from a single
// strategy. ClusterID is -1 for outliers (density strategy only).
type Assignment struct {
	EmployeeID string
	Strategy   Strategy
	ClusterID  int
	Confidence float64
	IsOutlier  bool
}

// Assignments maps employee ID to that employee's Assignment for one
// strategy.
type Assignments map[string]Assignment
