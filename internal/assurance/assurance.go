// Package assurance scores individual access grants by how typical the
// access is among an employee's peers and how actively it's used,
// capped by how sensitive the underlying resource is.
//
// Key design decision, carried from the source engine: sensitivity acts
// as a ceiling, not a weight. Critical-sensitivity access cannot be
// auto-certified no matter how typical or actively used it is.
package assurance

import (
	"fmt"
	"sort"

	"github.com/cbchhaya/aras/internal/config"
)

// Classification buckets the overall score into a reviewer-facing label.
type Classification string

const (
	HighAssurance   Classification = "high_assurance"
	MediumAssurance Classification = "medium_assurance"
	LowAssurance    Classification = "low_assurance"
)

// UsagePattern labels how recently and how often a grant has been used.
type UsagePattern string

const (
	UsageActive     UsagePattern = "active"
	UsageOccasional UsagePattern = "occasional"
	UsageStale      UsagePattern = "stale"
	UsageDormant    UsagePattern = "dormant"
)

// Usage is the raw activity data for one employee/resource pair.
type Usage struct {
	TotalAccessCount   int
	LastAccessedDaysAgo *int // nil = never accessed
	AccessCount30d     int
	AccessCount90d     int
	DaysSinceGrant     int
}

// Score is the complete assurance score for one access grant.
type Score struct {
	GrantID    string
	EmployeeID string
	ResourceID string

	OverallScore float64 // 0-100

	PeerTypicality      float64 // 0-1
	SensitivityCeiling  float64 // 0-1
	UsageFactor         float64 // 0-1
	RawScore            float64 // 0-1, before ceiling

	PeersWithAccess int
	TotalPeers      int
	PeerPercentage  float64

	UsagePattern        UsagePattern
	DaysSinceLastUse    *int

	ResourceSensitivity string
	ResourceName        string

	Classification       Classification
	AutoCertifyEligible   bool

	Explanations []string
}

// Typicality returns how common a resource grant is among an employee's
// peers: (peers also holding the resource) / (total peers). With no
// peers available, typicality is undefined and assumed moderate (0.5).
func Typicality(resourceID string, peerIDs []string, accessByEmployee map[string]map[string]struct{}) (typicality float64, peersWith, totalPeers int) {
	if len(peerIDs) == 0 {
		return 0.5, 0, 0
	}

	totalPeers = len(peerIDs)
	for _, peerID := range peerIDs {
		if _, ok := accessByEmployee[peerID][resourceID]; ok {
			peersWith++
		}
	}
	return float64(peersWith) / float64(totalPeers), peersWith, totalPeers
}

// UsageFactorOf classifies a usage pattern and returns the corresponding
// usage factor in [0,1], per the thresholds in cfg.
func UsageFactorOf(usage Usage, cfg config.AssuranceConfig) (float64, UsagePattern) {
	if usage.TotalAccessCount == 0 || usage.LastAccessedDaysAgo == nil {
		return 0.1, UsageDormant
	}

	daysAgo := *usage.LastAccessedDaysAgo
	switch {
	case daysAgo <= cfg.ActiveDaysThreshold:
		switch {
		case usage.AccessCount30d >= 10:
			return 1.0, UsageActive
		case usage.AccessCount30d >= 3:
			return 0.9, UsageActive
		default:
			return 0.8, UsageActive
		}
	case daysAgo <= cfg.OccasionalDaysThreshold:
		return 0.6, UsageOccasional
	case daysAgo <= cfg.StaleDaysThreshold:
		return 0.3, UsageStale
	default:
		return 0.1, UsageDormant
	}
}

// Calculate computes the complete assurance score for one access grant.
//
//	raw = weight_typicality*typicality + weight_usage*usage_factor
//	final = raw * sensitivity_ceiling * 100
//
// Sensitivity ceiling caps, never weighs: Critical access always has a
// ceiling of 0 and is never auto-certify eligible regardless of raw score.
func Calculate(grantID, employeeID, resourceID, resourceSensitivity, resourceName string, peerIDs []string, accessByEmployee map[string]map[string]struct{}, usage Usage, cfg config.AssuranceConfig) Score {
	typicality, peersWith, totalPeers := Typicality(resourceID, peerIDs, accessByEmployee)
	usageFactor, usagePattern := UsageFactorOf(usage, cfg)
	ceiling := cfg.Sensitivity.Ceiling(resourceSensitivity)

	raw := cfg.WeightTypicality*typicality + cfg.WeightUsage*usageFactor
	final := raw * ceiling * 100
	// Clamp to [0, ceiling*100] so non-default weights cannot push the
	// score past its sensitivity ceiling.
	if final > ceiling*100 {
		final = ceiling * 100
	}
	if final < 0 {
		final = 0
	}

	peerPercentage := 0.0
	if totalPeers > 0 {
		peerPercentage = float64(peersWith) / float64(totalPeers) * 100
	}

	var classification Classification
	autoEligible := false
	switch {
	case final >= cfg.HighAssuranceThreshold:
		classification = HighAssurance
		autoEligible = true
	case final >= cfg.MediumAssuranceThreshold:
		classification = MediumAssurance
	default:
		classification = LowAssurance
	}
	if ceiling == 0 {
		autoEligible = false
	}

	explanations := explain(typicality, peerPercentage, peersWith, totalPeers, usagePattern, resourceSensitivity, ceiling, final, usage.LastAccessedDaysAgo)

	return Score{
		GrantID:             grantID,
		EmployeeID:          employeeID,
		ResourceID:          resourceID,
		OverallScore:        round1(final),
		PeerTypicality:      round3(typicality),
		SensitivityCeiling:  ceiling,
		UsageFactor:         round3(usageFactor),
		RawScore:            round3(raw),
		PeersWithAccess:     peersWith,
		TotalPeers:          totalPeers,
		PeerPercentage:      round1(peerPercentage),
		UsagePattern:        usagePattern,
		DaysSinceLastUse:    usage.LastAccessedDaysAgo,
		ResourceSensitivity: resourceSensitivity,
		ResourceName:        resourceName,
		Classification:      classification,
		AutoCertifyEligible: autoEligible,
		Explanations:        explanations,
	}
}

func explain(typicality, peerPercentage float64, peersWith, totalPeers int, usagePattern UsagePattern, sensitivity string, ceiling, final float64, daysSinceLastUse *int) []string {
	var out []string

	switch {
	case totalPeers == 0:
		out = append(out, "No peer group available for comparison")
	case peerPercentage >= 80:
		out = append(out, fmt.Sprintf("Common access: %.0f%% of peers (%d/%d) have this access", peerPercentage, peersWith, totalPeers))
	case peerPercentage >= 50:
		out = append(out, fmt.Sprintf("Moderate access: %.0f%% of peers (%d/%d) have this access", peerPercentage, peersWith, totalPeers))
	case peerPercentage >= 20:
		out = append(out, fmt.Sprintf("Uncommon access: Only %.0f%% of peers (%d/%d) have this access", peerPercentage, peersWith, totalPeers))
	default:
		out = append(out, fmt.Sprintf("Unusual access: Only %.0f%% of peers (%d/%d) have this access", peerPercentage, peersWith, totalPeers))
	}

	switch usagePattern {
	case UsageActive:
		out = append(out, "Active usage: Access used recently")
	case UsageOccasional:
		out = append(out, fmt.Sprintf("Occasional usage: Last used %d days ago", valueOr(daysSinceLastUse)))
	case UsageStale:
		out = append(out, fmt.Sprintf("Stale access: Last used %d days ago", valueOr(daysSinceLastUse)))
	case UsageDormant:
		if daysSinceLastUse != nil {
			out = append(out, fmt.Sprintf("Dormant access: Not used in %d days", *daysSinceLastUse))
		} else {
			out = append(out, "Dormant access: Never used")
		}
	}

	switch {
	case ceiling == 0:
		out = append(out, "Critical sensitivity: Requires mandatory review (cannot auto-certify)")
	case ceiling < 0.6:
		out = append(out, fmt.Sprintf("Confidential sensitivity: Score capped at %.0f", ceiling*100))
	case ceiling < 0.9:
		out = append(out, "Internal sensitivity: Standard business access")
	}

	switch {
	case final >= 80:
		out = append(out, "High assurance: Eligible for auto-certification")
	case final >= 50:
		out = append(out, "Medium assurance: Review recommended")
	default:
		out = append(out, "Low assurance: Review required")
	}

	return out
}

func valueOr(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}

// Summary tallies classification and certification counts across a set
// of scores, matching the counts the pipeline's output summary reports.
type Summary struct {
	High, Medium, Low   int
	AutoCertifyEligible int
}

// Summarize aggregates a map of grant ID to Score.
func Summarize(scores map[string]Score) Summary {
	var s Summary
	for _, id := range sortedGrantIDs(scores) {
		score := scores[id]
		switch score.Classification {
		case HighAssurance:
			s.High++
		case MediumAssurance:
			s.Medium++
		case LowAssurance:
			s.Low++
		}
		if score.AutoCertifyEligible {
			s.AutoCertifyEligible++
		}
	}
	return s
}

func sortedGrantIDs(scores map[string]Score) []string {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
