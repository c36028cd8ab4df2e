package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/discochess/tiercache"
	"github.com/discochess/tiercache/benchmark/analysis"
	"github.com/discochess/tiercache/benchmark/reporting"
	"github.com/discochess/tiercache/benchmark/simulation"
	"github.com/discochess/tiercache/benchmark/workload"
)

var (
	workloadKind  string
	requests      int
	keySpace      int
	theta         float64
	seed          uint64
	window        int
	scenarioFlags []string
	baseline      string
	outputFormat  string
	outputFile    string
)

// defaultScenarios are compared when no --scenario, --config or --level
// flag is given.
var defaultScenarios = []string{
	"lru=64:LRU,256:LRU",
	"lfu=64:LFU,256:LFU",
	"mixed=64:LRU,256:LFU",
	"mixed-demote=64:LRU,256:LFU,demote",
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Compare level stacks on a synthetic workload",
	Long: `Replay a generated key sequence through one fresh cache per scenario and
compare per-window hit rates with Mann-Whitney U, Cohen's d and a bootstrap
confidence interval.

A scenario is NAME=LEVEL[,LEVEL...][,demote] with each level in
CAPACITY:POLICY form. The level stack from --config or --level is added as
the "configured" scenario.

Examples:
  # Compare the default scenarios on a Zipf workload
  tiercache simulate

  # Compare two custom stacks and write a markdown report
  tiercache simulate -s small=16:LRU -s deep=16:LRU,64:LFU,256:LFU,demote \
    --format markdown --output report.md`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&workloadKind, "workload", "w", "zipf", "key distribution: zipf, uniform, scan")
	simulateCmd.Flags().IntVarP(&requests, "requests", "n", 100000, "number of requests")
	simulateCmd.Flags().IntVarP(&keySpace, "keys", "k", 10000, "number of distinct keys")
	simulateCmd.Flags().Float64Var(&theta, "theta", 0.99, "zipf skew, in (0, 1)")
	simulateCmd.Flags().Uint64Var(&seed, "seed", 1, "workload random seed")
	simulateCmd.Flags().IntVar(&window, "window", 1000, "requests per hit-rate sample")
	simulateCmd.Flags().StringArrayVarP(&scenarioFlags, "scenario", "s", nil, "scenario as NAME=CAP:POLICY[,CAP:POLICY...][,demote] (repeatable)")
	simulateCmd.Flags().StringVar(&baseline, "baseline", "", "scenario the others are compared against (default: first in name order)")
	simulateCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, markdown")
	simulateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	scenarios, err := buildScenarios()
	if err != nil {
		return err
	}

	keys, err := generateKeys()
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	if verbose {
		fmt.Fprintf(os.Stderr, "Replaying %d %s requests through %d scenarios...\n", len(keys), workloadKind, len(scenarios))
	}

	sim := simulation.NewSimulator(scenarios, simulation.WithWindow(window), simulation.WithLogger(logger))
	results, err := sim.Run(ctx, keys)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	base := baseline
	if base == "" {
		base = firstName(scenarios)
	}
	comparison := analysis.CompareAll(results, base, 10000, 0.95)
	if comparison == nil {
		return fmt.Errorf("baseline scenario %q not found", base)
	}

	var output io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	wl := reporting.Workload{
		Kind:     workloadKind,
		Requests: len(keys),
		KeySpace: keySpace,
		Theta:    theta,
		Seed:     seed,
	}
	switch outputFormat {
	case "markdown":
		writeMarkdownReport(output, wl, results, comparison)
	case "text":
		writeTextReport(output, wl, results, comparison)
	default:
		return fmt.Errorf("unknown format: %s", outputFormat)
	}
	return nil
}

func buildScenarios() ([]simulation.Scenario, error) {
	var scenarios []simulation.Scenario
	if configFile != "" || len(levelFlags) > 0 {
		cfg, err := levelConfig()
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, simulation.Scenario{Name: "configured", Config: cfg})
	}

	defs := scenarioFlags
	if len(defs) == 0 && len(scenarios) == 0 {
		defs = defaultScenarios
	}

	seen := make(map[string]bool)
	for _, sc := range scenarios {
		seen[sc.Name] = true
	}
	for _, s := range defs {
		sc, err := parseScenario(s)
		if err != nil {
			return nil, err
		}
		if seen[sc.Name] {
			return nil, fmt.Errorf("duplicate scenario %q", sc.Name)
		}
		seen[sc.Name] = true
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// parseScenario parses NAME=LEVEL[,LEVEL...][,demote].
func parseScenario(s string) (simulation.Scenario, error) {
	name, stack, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return simulation.Scenario{}, fmt.Errorf("scenario %q: want NAME=CAP:POLICY[,...]", s)
	}

	sc := simulation.Scenario{Name: name}
	for _, part := range strings.Split(stack, ",") {
		part = strings.TrimSpace(part)
		if strings.EqualFold(part, "demote") {
			sc.Config.Demotion = true
			continue
		}
		lc, err := tiercache.ParseLevelFlag(part)
		if err != nil {
			return simulation.Scenario{}, fmt.Errorf("scenario %q: %w", name, err)
		}
		sc.Config.Levels = append(sc.Config.Levels, lc)
	}
	if len(sc.Config.Levels) == 0 {
		return simulation.Scenario{}, fmt.Errorf("scenario %q has no levels", name)
	}
	return sc, nil
}

func generateKeys() ([]int, error) {
	switch strings.ToLower(workloadKind) {
	case "zipf":
		return workload.Zipf(requests, keySpace, theta, seed)
	case "uniform":
		return workload.Uniform(requests, keySpace, seed)
	case "scan":
		return workload.Scan(requests, keySpace), nil
	default:
		return nil, fmt.Errorf("unknown workload: %s", workloadKind)
	}
}

func firstName(scenarios []simulation.Scenario) string {
	var first string
	for i, sc := range scenarios {
		if i == 0 || sc.Name < first {
			first = sc.Name
		}
	}
	return first
}

func writeTextReport(w io.Writer, wl reporting.Workload, results map[string]*simulation.Result, comp *analysis.MultiScenarioComparison) {
	fmt.Fprintf(w, "Tiercache Level Stack Simulation\n")
	fmt.Fprintf(w, "================================\n\n")
	fmt.Fprintf(w, "Workload: %s\n", wl.Kind)
	fmt.Fprintf(w, "Requests: %d\n", wl.Requests)
	fmt.Fprintf(w, "Keys:     %d\n\n", wl.KeySpace)

	fmt.Fprintf(w, "Results:\n")
	fmt.Fprintf(w, "--------\n\n")

	names := []string{comp.Baseline}
	for _, c := range comp.Comparisons {
		names = append(names, c.Scenario2)
	}
	for _, name := range names {
		m := simulation.ComputeMetrics(results[name])
		fmt.Fprintf(w, "%s:\n", name)
		fmt.Fprintf(w, "  Hit rate:      %.1f%%\n", m.HitRate)
		for i, rate := range m.LevelHitRates {
			fmt.Fprintf(w, "    L%d:          %.1f%%\n", i, rate)
		}
		fmt.Fprintf(w, "  Promotions:    %d\n", m.Promotions)
		fmt.Fprintf(w, "  Demotions:     %d\n", m.Demotions)
		fmt.Fprintf(w, "  Evictions:     %d\n", m.Evictions)
		fmt.Fprintf(w, "  Fetches:       %d\n", m.Fetches)
		fmt.Fprintf(w, "  Median µs:     %.2f\n", m.MedianLatency)
		fmt.Fprintf(w, "  P99 µs:        %.2f\n\n", m.P99Latency)
	}

	if len(comp.Comparisons) > 0 {
		fmt.Fprintf(w, "Statistical Analysis:\n")
		fmt.Fprintf(w, "---------------------\n\n")
		for _, c := range comp.Comparisons {
			fmt.Fprintln(w, c.Summary())
		}
	}
}

func writeMarkdownReport(w io.Writer, wl reporting.Workload, results map[string]*simulation.Result, comp *analysis.MultiScenarioComparison) {
	report := reporting.NewMarkdownReport(w)
	report.WriteHeader("Tiercache Level Stack Simulation")
	report.WriteMethodology(wl)
	report.WriteSummaryTable(results)
	for _, c := range comp.Comparisons {
		report.WriteComparison(c)
	}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		report.WriteDistributionChart(name, results[name].WindowHitRates)
	}
	report.WriteFooter()
}
