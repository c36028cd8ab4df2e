package analysis

import (
	"strings"
	"testing"

	"github.com/discochess/tiercache/benchmark/simulation"
)

func result(name string, rates ...float64) *simulation.Result {
	return &simulation.Result{Scenario: name, WindowHitRates: rates}
}

func TestCompareScenarios(t *testing.T) {
	low := result("small", 40, 42, 41, 43, 39, 40, 44, 41)
	high := result("tiered", 80, 82, 79, 81, 83, 80, 78, 82)

	comp := CompareScenarios(low, high, 500, 0.95)
	if comp.Winner != "tiered" {
		t.Errorf("Winner = %q, want tiered", comp.Winner)
	}
	if !comp.WinnerConfident {
		t.Error("WinnerConfident = false, want true")
	}
	if !strings.Contains(comp.Summary(), "statistically significant") {
		t.Errorf("Summary() = %q", comp.Summary())
	}
}

func TestCompareScenarios_Tie(t *testing.T) {
	a := result("a", 50, 50, 50)
	b := result("b", 50, 50, 50)

	comp := CompareScenarios(a, b, 100, 0.95)
	if comp.Winner != "tie" || comp.WinnerConfident {
		t.Errorf("Winner = %q (confident %v), want tie", comp.Winner, comp.WinnerConfident)
	}
}

func TestCompareAll(t *testing.T) {
	results := map[string]*simulation.Result{
		"base": result("base", 50, 51, 52),
		"c":    result("c", 60, 61, 62),
		"b":    result("b", 40, 41, 42),
	}

	multi := CompareAll(results, "base", 100, 0.95)
	if multi == nil {
		t.Fatal("CompareAll() = nil")
	}
	if len(multi.Comparisons) != 2 {
		t.Fatalf("got %d comparisons, want 2", len(multi.Comparisons))
	}
	if multi.Comparisons[0].Scenario2 != "b" || multi.Comparisons[1].Scenario2 != "c" {
		t.Errorf("comparisons not in name order: %s, %s", multi.Comparisons[0].Scenario2, multi.Comparisons[1].Scenario2)
	}

	if CompareAll(results, "missing", 100, 0.95) != nil {
		t.Error("CompareAll() with unknown baseline should return nil")
	}
}
