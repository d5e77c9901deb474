// Package config loads and validates the analytics pipeline's tunables:
// proximity weights, clustering parameters, and assurance thresholds.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProximityWeights controls how much each proximity dimension
// contributes to the overall peer-proximity score. They are expected to
// sum to 1.0; Normalized returns a rescaled copy if they don't.
type ProximityWeights struct {
	Structural float64 `yaml:"structural"`
	Functional float64 `yaml:"functional"`
	Behavioral float64 `yaml:"behavioral"`
	Temporal   float64 `yaml:"temporal"`
}

// DefaultProximityWeights matches the weighting the source analytics
// engine shipped with.
func DefaultProximityWeights() ProximityWeights {
	return ProximityWeights{Structural: 0.25, Functional: 0.35, Behavioral: 0.30, Temporal: 0.10}
}

// Valid reports whether the weights sum to 1.0 within tolerance.
func (w ProximityWeights) Valid() bool {
	total := w.Structural + w.Functional + w.Behavioral + w.Temporal
	diff := total - 1.0
	if diff < 0 {
		diff = -diff
	}
	return diff < 0.001
}

// Normalized returns a copy of w rescaled to sum to 1.0. If all weights
// are zero it returns DefaultProximityWeights.
func (w ProximityWeights) Normalized() ProximityWeights {
	total := w.Structural + w.Functional + w.Behavioral + w.Temporal
	if total == 0 {
		return DefaultProximityWeights()
	}
	return ProximityWeights{
		Structural: w.Structural / total,
		Functional: w.Functional / total,
		Behavioral: w.Behavioral / total,
		Temporal:   w.Temporal / total,
	}
}

// HierarchicalLinkage names the linkage criterion the agglomerative
// clustering strategy uses to measure inter-cluster distance.
type HierarchicalLinkage string

const (
	LinkageAverage  HierarchicalLinkage = "average"
	LinkageComplete HierarchicalLinkage = "complete"
	LinkageSingle   HierarchicalLinkage = "single"
	// LinkageWard is accepted by the source config shape but rejected by
	// Validate: Ward's criterion needs a genuine Euclidean embedding,
	// which a precomputed arbitrary distance matrix does not supply.
	LinkageWard HierarchicalLinkage = "ward"
)

// ClusteringConfig controls all four clustering strategies and the
// consensus threshold applied across them.
type ClusteringConfig struct {
	CentroidClusterCount    int     `yaml:"centroid_cluster_count"` // 0 = auto-select via silhouette
	CentroidMaxClusters     int     `yaml:"centroid_max_clusters"`
	CentroidMinClusterSize  int     `yaml:"centroid_min_cluster_size"`

	HierarchicalClusterCount int                 `yaml:"hierarchical_cluster_count"` // 0 = auto-select
	HierarchicalLinkage      HierarchicalLinkage `yaml:"hierarchical_linkage"`

	DBSCANEps         float64 `yaml:"dbscan_eps"`
	DBSCANMinSamples  int     `yaml:"dbscan_min_samples"`

	GraphResolution     float64 `yaml:"graph_resolution"`
	GraphMinEdgeWeight  float64 `yaml:"graph_min_edge_weight"`

	ConsensusThreshold       float64 `yaml:"consensus_threshold"`
	MinStrategiesForConsensus int    `yaml:"min_strategies_for_consensus"`

	// Strategies restricts a run to a subset of the four clustering
	// strategy names ("centroid", "hierarchical", "density",
	// "graph_community"). Empty means all four.
	Strategies []string `yaml:"strategies"`

	// RngSeed seeds every stochastic component of clustering (PAM medoid
	// initialization, gonum's modularity optimizer), so that repeated
	// runs over identical input produce byte-identical assignments.
	RngSeed int64 `yaml:"rng_seed"`
}

// DefaultClusteringConfig matches the source clustering engine's defaults.
func DefaultClusteringConfig() ClusteringConfig {
	return ClusteringConfig{
		CentroidMaxClusters:       50,
		CentroidMinClusterSize:    5,
		HierarchicalLinkage:       LinkageAverage,
		DBSCANEps:                 0.3,
		DBSCANMinSamples:          5,
		GraphResolution:           1.0,
		GraphMinEdgeWeight:        0.2,
		ConsensusThreshold:        0.7,
		MinStrategiesForConsensus: 3,
		RngSeed:                   42,
	}
}

// SensitivityConfig maps a resource's sensitivity label to the ceiling
// (not weight) an assurance score may never exceed for that resource.
type SensitivityConfig struct {
	Public       float64 `yaml:"public"`
	Internal     float64 `yaml:"internal"`
	Confidential float64 `yaml:"confidential"`
	Critical     float64 `yaml:"critical"`
}

// DefaultSensitivityConfig matches the source assurance engine's ceilings.
func DefaultSensitivityConfig() SensitivityConfig {
	return SensitivityConfig{Public: 1.0, Internal: 0.85, Confidential: 0.50, Critical: 0.0}
}

// Ceiling returns the score ceiling for a sensitivity level string,
// defaulting to Internal for unrecognized or empty labels.
func (s SensitivityConfig) Ceiling(level string) float64 {
	switch level {
	case "Public":
		return s.Public
	case "Internal":
		return s.Internal
	case "Confidential":
		return s.Confidential
	case "Critical":
		return s.Critical
	default:
		return s.Internal
	}
}

// AssuranceConfig controls score thresholds and component weights for
// the grant-level assurance scorer.
type AssuranceConfig struct {
	HighAssuranceThreshold   float64           `yaml:"high_assurance_threshold"`
	MediumAssuranceThreshold float64           `yaml:"medium_assurance_threshold"`
	Sensitivity              SensitivityConfig `yaml:"sensitivity"`
	ActiveDaysThreshold      int               `yaml:"active_days_threshold"`
	OccasionalDaysThreshold  int               `yaml:"occasional_days_threshold"`
	StaleDaysThreshold       int               `yaml:"stale_days_threshold"`
	WeightTypicality         float64           `yaml:"weight_typicality"`
	WeightUsage              float64           `yaml:"weight_usage"`
}

// DefaultAssuranceConfig matches the source assurance engine's defaults.
func DefaultAssuranceConfig() AssuranceConfig {
	return AssuranceConfig{
		HighAssuranceThreshold:   80.0,
		MediumAssuranceThreshold: 50.0,
		Sensitivity:              DefaultSensitivityConfig(),
		ActiveDaysThreshold:      30,
		OccasionalDaysThreshold:  90,
		StaleDaysThreshold:       365,
		WeightTypicality:         0.6,
		WeightUsage:              0.4,
	}
}

// Config is the complete set of tunables for one pipeline run.
type Config struct {
	Proximity  ProximityWeights  `yaml:"proximity"`
	Clustering ClusteringConfig  `yaml:"clustering"`
	Assurance  AssuranceConfig   `yaml:"assurance"`
	LOBFilter  string            `yaml:"lob_filter"`
	BlockByLOB bool              `yaml:"block_by_lob"`
}

// Default returns a Config matching the source engine's defaults.
func Default() Config {
	return Config{
		Proximity:  DefaultProximityWeights(),
		Clustering: DefaultClusteringConfig(),
		Assurance:  DefaultAssuranceConfig(),
		BlockByLOB: true,
	}
}

// Error is a fatal configuration problem detected before any pipeline
// stage runs. It is one of the two error kinds the pipeline can return
// (the other is snapshot.Error).
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads a YAML config file, filling unset fields from Default, and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks a Config for internal consistency, normalizing
// proximity weights in place if they don't sum to 1.0, and returns a
// *Error describing the first problem found.
func Validate(cfg *Config) error {
	if cfg.Proximity.Structural < 0 || cfg.Proximity.Functional < 0 ||
		cfg.Proximity.Behavioral < 0 || cfg.Proximity.Temporal < 0 {
		return &Error{Field: "proximity", Reason: "weights must be non-negative"}
	}
	if !cfg.Proximity.Valid() {
		cfg.Proximity = cfg.Proximity.Normalized()
	}

	switch cfg.Clustering.HierarchicalLinkage {
	case LinkageAverage, LinkageComplete, LinkageSingle:
		// fine
	case LinkageWard:
		return &Error{Field: "clustering.hierarchical_linkage", Reason: "ward linkage requires a Euclidean embedding and cannot be used with a precomputed proximity matrix"}
	case "":
		cfg.Clustering.HierarchicalLinkage = LinkageAverage
	default:
		return &Error{Field: "clustering.hierarchical_linkage", Reason: fmt.Sprintf("unrecognized linkage %q", cfg.Clustering.HierarchicalLinkage)}
	}

	if cfg.Clustering.DBSCANEps <= 0 {
		return &Error{Field: "clustering.dbscan_eps", Reason: "must be positive"}
	}
	if cfg.Clustering.DBSCANMinSamples <= 0 {
		return &Error{Field: "clustering.dbscan_min_samples", Reason: "must be positive"}
	}

	validStrategies := map[string]bool{"centroid": true, "hierarchical": true, "density": true, "graph_community": true}
	for _, s := range cfg.Clustering.Strategies {
		if !validStrategies[s] {
			return &Error{Field: "clustering.strategies", Reason: fmt.Sprintf("unrecognized strategy %q", s)}
		}
	}

	if cfg.Assurance.HighAssuranceThreshold < cfg.Assurance.MediumAssuranceThreshold {
		return &Error{Field: "assurance.high_assurance_threshold", Reason: "must be >= medium_assurance_threshold"}
	}
	for name, v := range map[string]float64{
		"assurance.high_assurance_threshold":   cfg.Assurance.HighAssuranceThreshold,
		"assurance.medium_assurance_threshold": cfg.Assurance.MediumAssuranceThreshold,
	} {
		if v < 0 || v > 100 {
			return &Error{Field: name, Reason: "must be in [0, 100]"}
		}
	}

	return nil
}
