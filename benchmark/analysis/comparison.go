package analysis

import (
	"fmt"
	"sort"

	"github.com/discochess/tiercache/benchmark/simulation"
)

// ScenarioComparison contains a full statistical comparison of the
// per-window hit rates of two scenarios.
type ScenarioComparison struct {
	Scenario1       string
	Scenario2       string
	Stats1          *DescriptiveStats
	Stats2          *DescriptiveStats
	MannWhitney     *MannWhitneyResult
	EffectSize      *EffectSize
	BootstrapCI     *BootstrapResult
	Winner          string // Name of the scenario with the higher hit rate, or "tie".
	WinnerConfident bool   // True if statistically significant.
}

// CompareScenarios performs a full statistical comparison between two
// scenarios.
func CompareScenarios(
	result1, result2 *simulation.Result,
	bootstrapIterations int,
	confidence float64,
) *ScenarioComparison {
	sample1 := result1.WindowHitRates
	sample2 := result2.WindowHitRates

	mw := MannWhitneyU(sample1, sample2)
	es := ComputeEffectSize(sample1, sample2)
	bs := BootstrapConfidenceInterval(sample1, sample2, bootstrapIterations, confidence, 1)

	stats1 := Describe(sample1)
	stats2 := Describe(sample2)

	winner := "tie"
	confident := false
	switch {
	case stats1.Mean > stats2.Mean:
		winner = result1.Scenario
		confident = mw.Significant
	case stats2.Mean > stats1.Mean:
		winner = result2.Scenario
		confident = mw.Significant
	}

	return &ScenarioComparison{
		Scenario1:       result1.Scenario,
		Scenario2:       result2.Scenario,
		Stats1:          stats1,
		Stats2:          stats2,
		MannWhitney:     mw,
		EffectSize:      es,
		BootstrapCI:     bs,
		Winner:          winner,
		WinnerConfident: confident,
	}
}

// Summary returns a human-readable summary of the comparison.
func (c *ScenarioComparison) Summary() string {
	sig := "not statistically significant"
	if c.MannWhitney.Significant {
		sig = fmt.Sprintf("statistically significant (p=%.4f)", c.MannWhitney.PValue)
	}

	return fmt.Sprintf(
		"%s vs %s:\n"+
			"  %s: mean=%.2f%%, median=%.2f%%, std=%.2f\n"+
			"  %s: mean=%.2f%%, median=%.2f%%, std=%.2f\n"+
			"  Difference: %.2f points\n"+
			"  Effect size: %.2f (%s)\n"+
			"  Result: %s, %s",
		c.Scenario1, c.Scenario2,
		c.Scenario1, c.Stats1.Mean, c.Stats1.Median, c.Stats1.StdDev,
		c.Scenario2, c.Stats2.Mean, c.Stats2.Median, c.Stats2.StdDev,
		c.Stats1.Mean-c.Stats2.Mean,
		c.EffectSize.CohensD, c.EffectSize.Interpretation,
		c.Winner, sig,
	)
}

// MultiScenarioComparison compares several scenarios against a baseline.
type MultiScenarioComparison struct {
	Baseline    string
	Comparisons []*ScenarioComparison
}

// CompareAll compares every scenario against baseline, in name order.
// It returns nil if baseline is not among the results.
func CompareAll(
	results map[string]*simulation.Result,
	baseline string,
	bootstrapIterations int,
	confidence float64,
) *MultiScenarioComparison {
	baseResult, ok := results[baseline]
	if !ok {
		return nil
	}

	names := make([]string, 0, len(results))
	for name := range results {
		if name != baseline {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	multi := &MultiScenarioComparison{Baseline: baseline}
	for _, name := range names {
		comp := CompareScenarios(baseResult, results[name], bootstrapIterations, confidence)
		multi.Comparisons = append(multi.Comparisons, comp)
	}
	return multi
}
