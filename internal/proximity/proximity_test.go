package proximity

import (
	"context"
	"math"
	"testing"

	"github.com/cbchhaya/aras/internal/config"
	"github.com/cbchhaya/aras/internal/features"
)

func TestStructural_SameManagerAndTeam(t *testing.T) {
	a := &features.EmployeeFeatures{EmployeeID: "a", ManagerID: "m", TeamID: "t", SubLOBID: "sl", LOBID: "l", LocationID: "nyc"}
	b := &features.EmployeeFeatures{EmployeeID: "b", ManagerID: "m", TeamID: "t", SubLOBID: "sl", LOBID: "l", LocationID: "nyc"}

	calc := NewCalculator(config.DefaultProximityWeights(), nil)
	score := calc.Structural(a, b)
	want := 0.3 + 0.2 + 0.15 + 0.1 + 0.05 // manager + team + sub-LOB + LOB + location, no chain-distance bonus
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("expected structural score %v for full non-chain overlap, got %v", want, score)
	}
}

func TestStructural_NoOverlapIsZero(t *testing.T) {
	a := &features.EmployeeFeatures{EmployeeID: "a", ManagerID: "m1", TeamID: "t1", SubLOBID: "sl1", LOBID: "l1", LocationID: "nyc"}
	b := &features.EmployeeFeatures{EmployeeID: "b", ManagerID: "m2", TeamID: "t2", SubLOBID: "sl2", LOBID: "l2", LocationID: "sf"}

	calc := NewCalculator(config.DefaultProximityWeights(), nil)
	if score := calc.Structural(a, b); score != 0 {
		t.Errorf("expected 0 structural proximity for zero overlap, got %v", score)
	}
}

func TestStructural_ManagerChainHopDecay(t *testing.T) {
	a := &features.EmployeeFeatures{EmployeeID: "a"}
	b := &features.EmployeeFeatures{EmployeeID: "b"}

	chains := map[string][]string{
		"a": {"director"},       // 1 hop to shared ancestor
		"b": {"lead", "director"}, // 2 hops to shared ancestor
	}
	calc := NewCalculator(config.DefaultProximityWeights(), chains)
	score := calc.Structural(a, b)

	want := 0.2 / (1.0 + 1.0) // harmonic decay at hop distance 1
	if math.Abs(score-want) > 1e-9 {
		t.Errorf("expected hop-decayed score %v, got %v", want, score)
	}
}

func TestFunctional_FullOverlapScoresOne(t *testing.T) {
	a := &features.EmployeeFeatures{JobCode: "ANL1", JobFamily: "Analytics", JobLevel: 3, CostCenterID: "cc1"}
	b := &features.EmployeeFeatures{JobCode: "ANL1", JobFamily: "Analytics", JobLevel: 3, CostCenterID: "cc1"}

	calc := NewCalculator(config.DefaultProximityWeights(), nil)
	score := calc.Functional(a, b)
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("expected full functional overlap to cap at 1.0, got %v", score)
	}
}

func TestFunctional_LevelCloseness(t *testing.T) {
	calc := NewCalculator(config.DefaultProximityWeights(), nil)
	near := calc.Functional(&features.EmployeeFeatures{JobLevel: 3}, &features.EmployeeFeatures{JobLevel: 4})
	far := calc.Functional(&features.EmployeeFeatures{JobLevel: 1}, &features.EmployeeFeatures{JobLevel: 7})
	if near <= far {
		t.Errorf("expected closer job levels to score higher: near=%v far=%v", near, far)
	}
}

func TestBehavioral_JaccardAndCosine(t *testing.T) {
	a := &features.EmployeeFeatures{
		AccessSet:      map[string]struct{}{"r1": {}, "r2": {}},
		ActivityVector: map[string]float64{"r1": 1.0, "r2": 0.5},
	}
	b := &features.EmployeeFeatures{
		AccessSet:      map[string]struct{}{"r1": {}, "r2": {}},
		ActivityVector: map[string]float64{"r1": 1.0, "r2": 0.5},
	}
	calc := NewCalculator(config.DefaultProximityWeights(), nil)
	score := calc.Behavioral(a, b)
	if math.Abs(score-1.0) > 1e-9 {
		t.Errorf("expected identical access/activity to score 1.0, got %v", score)
	}
}

func TestBehavioral_DisjointAccessIsZero(t *testing.T) {
	a := &features.EmployeeFeatures{AccessSet: map[string]struct{}{"r1": {}}}
	b := &features.EmployeeFeatures{AccessSet: map[string]struct{}{"r2": {}}}
	calc := NewCalculator(config.DefaultProximityWeights(), nil)
	if score := calc.Behavioral(a, b); score != 0 {
		t.Errorf("expected 0 for disjoint access sets with no activity, got %v", score)
	}
}

func TestTemporal_SameHireQuarterBonus(t *testing.T) {
	a := &features.EmployeeFeatures{HireQuarter: "2024-Q1"}
	b := &features.EmployeeFeatures{HireQuarter: "2024-Q1"}
	calc := NewCalculator(config.DefaultProximityWeights(), nil)
	if score := calc.Temporal(a, b); score < 0.3 {
		t.Errorf("expected at least the 0.3 hire-quarter bonus, got %v", score)
	}
}

func TestProximity_SymmetricAndBounded(t *testing.T) {
	a := &features.EmployeeFeatures{EmployeeID: "a", ManagerID: "m", TeamID: "t", JobCode: "X", HireQuarter: "2024-Q1"}
	b := &features.EmployeeFeatures{EmployeeID: "b", ManagerID: "m", TeamID: "t", JobCode: "X", HireQuarter: "2024-Q1"}

	calc := NewCalculator(config.DefaultProximityWeights(), nil)
	ab, _ := calc.Proximity(a, b)
	ba, _ := calc.Proximity(b, a)
	if ab != ba {
		t.Errorf("expected symmetric proximity, got a->b=%v b->a=%v", ab, ba)
	}
	if ab < 0 || ab > 1 {
		t.Errorf("expected proximity in [0,1], got %v", ab)
	}
}

func TestNewCalculator_NormalizesInvalidWeights(t *testing.T) {
	calc := NewCalculator(config.ProximityWeights{Structural: 2, Functional: 2, Behavioral: 2, Temporal: 2}, nil)
	if !calc.weights.Valid() {
		t.Errorf("expected NewCalculator to normalize invalid weights, got %+v", calc.weights)
	}
}

func TestBuildMatrix_SymmetricWithUnitDiagonal(t *testing.T) {
	feats := map[string]*features.EmployeeFeatures{
		"e1": {EmployeeID: "e1", JobCode: "A"},
		"e2": {EmployeeID: "e2", JobCode: "A"},
		"e3": {EmployeeID: "e3", JobCode: "B"},
	}
	ids := []string{"e1", "e2", "e3"}
	calc := NewCalculator(config.DefaultProximityWeights(), nil)

	m, err := BuildMatrix(context.Background(), ids, feats, calc, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, id := range ids {
		if m.At(id, id) != 1.0 {
			t.Errorf("expected diagonal proximity 1.0 for %s, got %v", id, m.At(id, id))
		}
	}
	if m.At("e1", "e2") != m.At("e2", "e1") {
		t.Errorf("expected symmetric matrix")
	}
}

func TestBuildMatrix_LOBBlockingLeavesCrossLOBAtZero(t *testing.T) {
	feats := map[string]*features.EmployeeFeatures{
		"e1": {EmployeeID: "e1", JobCode: "A", LOBID: "lob1"},
		"e2": {EmployeeID: "e2", JobCode: "A", LOBID: "lob2"},
	}
	ids := []string{"e1", "e2"}
	calc := NewCalculator(config.DefaultProximityWeights(), nil)

	m, err := BuildMatrix(context.Background(), ids, feats, calc, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.At("e1", "e2") != 0 {
		t.Errorf("expected cross-LOB pair to be left at 0 under blocking, got %v", m.At("e1", "e2"))
	}
}

func TestFindPeers_RespectsTopKAndMinProximity(t *testing.T) {
	feats := map[string]*features.EmployeeFeatures{
		"target": {EmployeeID: "target", JobCode: "X"},
		"close":  {EmployeeID: "close", JobCode: "X"},
		"far":    {EmployeeID: "far", JobCode: "Y"},
	}
	calc := NewCalculator(config.DefaultProximityWeights(), nil)

	matches := FindPeers("target", feats, calc, 5, 0.1)
	if len(matches) != 1 || matches[0].EmployeeID != "close" {
		t.Errorf("expected only 'close' to clear the proximity floor, got %+v", matches)
	}
}
