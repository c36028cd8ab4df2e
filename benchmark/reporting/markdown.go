// Package reporting provides report generation for simulation results.
package reporting

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/discochess/tiercache/benchmark/analysis"
	"github.com/discochess/tiercache/benchmark/simulation"
)

// MarkdownReport generates simulation reports in Markdown format.
type MarkdownReport struct {
	w   io.Writer
	now func() time.Time
}

// NewMarkdownReport creates a new Markdown report writer.
func NewMarkdownReport(w io.Writer) *MarkdownReport {
	return &MarkdownReport{w: w, now: time.Now}
}

// WriteHeader writes the report header.
func (r *MarkdownReport) WriteHeader(title string) {
	fmt.Fprintf(r.w, "# %s\n\n", title)
	fmt.Fprintf(r.w, "Generated: %s\n\n", r.now().Format(time.RFC3339))
}

// Workload describes the replayed key sequence.
type Workload struct {
	Kind     string
	Requests int
	KeySpace int
	Theta    float64
	Seed     uint64
}

// WriteMethodology writes the methodology section.
func (r *MarkdownReport) WriteMethodology(wl Workload) {
	fmt.Fprintln(r.w, "## Methodology")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Workload:** %s", wl.Kind)
	if wl.Kind == "zipf" {
		fmt.Fprintf(r.w, " (theta=%.2f)", wl.Theta)
	}
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Requests:** %d over %d keys (seed %d)\n", wl.Requests, wl.KeySpace, wl.Seed)
	fmt.Fprintln(r.w, "- **Metric:** Hit rate per window of requests (higher is better)")
	fmt.Fprintln(r.w, "- **Statistical tests:** Mann-Whitney U (non-parametric), Cohen's d effect size")
	fmt.Fprintln(r.w)
}

// WriteSummaryTable writes one row per scenario, in name order.
func (r *MarkdownReport) WriteSummaryTable(results map[string]*simulation.Result) {
	fmt.Fprintln(r.w, "## Summary")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Scenario | Hit Rate | Per-Level Hits | Promotions | Demotions | Evictions | Fetches | p50 µs | p99 µs |")
	fmt.Fprintln(r.w, "|----------|----------|----------------|------------|-----------|-----------|---------|--------|--------|")

	for _, name := range sortedNames(results) {
		m := simulation.ComputeMetrics(results[name])
		levels := make([]string, len(m.LevelHitRates))
		for i, rate := range m.LevelHitRates {
			levels[i] = fmt.Sprintf("L%d %.1f%%", i, rate)
		}
		fmt.Fprintf(r.w, "| %s | %.1f%% | %s | %d | %d | %d | %d | %.1f | %.1f |\n",
			name, m.HitRate, strings.Join(levels, ", "),
			m.Promotions, m.Demotions, m.Evictions, m.Fetches,
			m.MedianLatency, m.P99Latency)
	}
	fmt.Fprintln(r.w)
}

// WriteComparison writes a detailed comparison section.
func (r *MarkdownReport) WriteComparison(comp *analysis.ScenarioComparison) {
	fmt.Fprintf(r.w, "## %s vs %s\n\n", comp.Scenario1, comp.Scenario2)

	fmt.Fprintln(r.w, "### Window Hit Rates")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Metric | "+comp.Scenario1+" | "+comp.Scenario2+" |")
	fmt.Fprintln(r.w, "|--------|"+strings.Repeat("-", len(comp.Scenario1)+2)+"|"+strings.Repeat("-", len(comp.Scenario2)+2)+"|")
	fmt.Fprintf(r.w, "| Mean | %.2f | %.2f |\n", comp.Stats1.Mean, comp.Stats2.Mean)
	fmt.Fprintf(r.w, "| Median | %.2f | %.2f |\n", comp.Stats1.Median, comp.Stats2.Median)
	fmt.Fprintf(r.w, "| Std Dev | %.2f | %.2f |\n", comp.Stats1.StdDev, comp.Stats2.StdDev)
	fmt.Fprintf(r.w, "| Min | %.1f | %.1f |\n", comp.Stats1.Min, comp.Stats2.Min)
	fmt.Fprintf(r.w, "| Max | %.1f | %.1f |\n", comp.Stats1.Max, comp.Stats2.Max)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Statistical Analysis")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Mann-Whitney U:** %.2f (z=%.2f, p=%.4f)\n",
		comp.MannWhitney.U, comp.MannWhitney.Z, comp.MannWhitney.PValue)
	fmt.Fprintf(r.w, "- **Effect size (Cohen's d):** %.2f (%s)\n",
		comp.EffectSize.CohensD, comp.EffectSize.Interpretation)
	fmt.Fprintf(r.w, "- **%.0f%% CI for mean difference:** [%.2f, %.2f]\n",
		comp.BootstrapCI.Confidence*100, comp.BootstrapCI.LowerBound, comp.BootstrapCI.UpperBound)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Conclusion")
	fmt.Fprintln(r.w)
	if comp.WinnerConfident {
		fmt.Fprintf(r.w, "**%s** hits significantly more often than %s ",
			comp.Winner, otherScenario(comp.Winner, comp.Scenario1, comp.Scenario2))
		fmt.Fprintf(r.w, "(p < 0.05, effect size: %s).\n", comp.EffectSize.Interpretation)
	} else {
		fmt.Fprintln(r.w, "No statistically significant difference detected between scenarios (p >= 0.05).")
	}
	fmt.Fprintln(r.w)
}

func otherScenario(winner, s1, s2 string) string {
	if winner == s1 {
		return s2
	}
	return s1
}

// WriteDistributionChart writes an ASCII chart of window hit rates,
// bucketed by 10 percentage points.
func (r *MarkdownReport) WriteDistributionChart(name string, rates []float64) {
	fmt.Fprintf(r.w, "### %s Distribution\n\n", name)
	fmt.Fprintln(r.w, "```")

	hist := makeHistogram(rates)
	maxCount := 0
	for _, count := range hist {
		maxCount = max(maxCount, count)
	}

	width := 40
	for i, count := range hist {
		barLen := 0
		if maxCount > 0 {
			barLen = count * width / maxCount
		}
		bar := strings.Repeat("█", barLen)
		fmt.Fprintf(r.w, "%3d-%3d%% │ %s %d\n", i*10, (i+1)*10, bar, count)
	}

	fmt.Fprintln(r.w, "```")
	fmt.Fprintln(r.w)
}

// makeHistogram buckets percentages into [0,10), [10,20) ... [90,100].
func makeHistogram(rates []float64) []int {
	hist := make([]int, 10)
	for _, v := range rates {
		bucket := int(v / 10)
		bucket = min(max(bucket, 0), len(hist)-1)
		hist[bucket]++
	}
	return hist
}

// WriteFooter writes the report footer.
func (r *MarkdownReport) WriteFooter() {
	fmt.Fprintln(r.w, "---")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "*Report generated by tiercache simulate*")
}

func sortedNames(results map[string]*simulation.Result) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
