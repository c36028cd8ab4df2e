package simulation

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Metrics contains computed metrics from a simulation result.
type Metrics struct {
	// Core metrics.
	Requests      int
	HitRate       float64
	LevelHitRates []float64 // Share of requests served by each level.
	Promotions    int64
	Demotions     int64
	Evictions     int64
	Fetches       int64

	// Latency distribution in microseconds.
	MeanLatency   float64
	MedianLatency float64
	P90Latency    float64
	P99Latency    float64

	// Stability across windows.
	MinWindowHitRate float64
	MaxWindowHitRate float64

	// Locality metrics.
	UniqueKeys       int
	KeyConcentration float64 // Gini coefficient of key popularity.
	TopKeyPct        float64 // Percentage of requests for the top 10% of keys.
}

// ComputeMetrics computes detailed metrics from a result.
func ComputeMetrics(result *Result) *Metrics {
	m := &Metrics{
		Requests:   result.Requests,
		HitRate:    result.HitRate(),
		Promotions: result.Stats.Promotions,
		Demotions:  result.Stats.Demotions,
		Evictions:  result.Stats.Evictions,
		Fetches:    result.Stats.Fetches,
		UniqueKeys: len(result.KeyHits),
	}

	m.LevelHitRates = make([]float64, len(result.Stats.Levels))
	for i := range result.Stats.Levels {
		m.LevelHitRates[i] = result.Stats.LevelHitRate(i)
	}

	if len(result.Latencies) > 0 {
		sorted := make([]float64, len(result.Latencies))
		copy(sorted, result.Latencies)
		sort.Float64s(sorted)

		m.MeanLatency = stat.Mean(sorted, nil)
		m.MedianLatency = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		m.P90Latency = stat.Quantile(0.9, stat.Empirical, sorted, nil)
		m.P99Latency = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	}

	if len(result.WindowHitRates) > 0 {
		m.MinWindowHitRate, m.MaxWindowHitRate = result.WindowHitRates[0], result.WindowHitRates[0]
		for _, r := range result.WindowHitRates {
			m.MinWindowHitRate = min(m.MinWindowHitRate, r)
			m.MaxWindowHitRate = max(m.MaxWindowHitRate, r)
		}
	}

	if len(result.KeyHits) > 0 {
		m.KeyConcentration = computeGini(result.KeyHits)
		m.TopKeyPct = computeTopKeyPct(result.KeyHits, result.Requests, 0.1)
	}

	return m
}

func computeGini(hits map[int]int) float64 {
	if len(hits) == 0 {
		return 0
	}

	values := make([]int, 0, len(hits))
	for _, v := range hits {
		values = append(values, v)
	}
	sort.Ints(values)

	n := float64(len(values))
	var sum, cumulativeSum float64
	for i, v := range values {
		sum += float64(v)
		cumulativeSum += float64(i+1) * float64(v)
	}

	if sum == 0 {
		return 0
	}

	return (2*cumulativeSum)/(n*sum) - (n+1)/n
}

func computeTopKeyPct(hits map[int]int, total int, topFraction float64) float64 {
	if total == 0 || len(hits) == 0 {
		return 0
	}

	counts := make([]int, 0, len(hits))
	for _, h := range hits {
		counts = append(counts, h)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	topCount := max(int(float64(len(counts))*topFraction), 1)

	var topHits int
	for _, h := range counts[:min(topCount, len(counts))] {
		topHits += h
	}

	return float64(topHits) / float64(total) * 100
}

// MetricsComparison holds the differences between two scenarios.
type MetricsComparison struct {
	Scenario1 string
	Scenario2 string

	HitRateDiff       float64 // Positive means Scenario1 hits more often.
	FetchesDiffPct    float64
	MedianLatencyDiff float64
	PromotionsDiff    int64
}

// Compare compares two metrics and returns the differences.
func Compare(m1, m2 *Metrics, name1, name2 string) *MetricsComparison {
	return &MetricsComparison{
		Scenario1:         name1,
		Scenario2:         name2,
		HitRateDiff:       m1.HitRate - m2.HitRate,
		FetchesDiffPct:    safeDiffPct(float64(m1.Fetches), float64(m2.Fetches)),
		MedianLatencyDiff: m1.MedianLatency - m2.MedianLatency,
		PromotionsDiff:    m1.Promotions - m2.Promotions,
	}
}

func safeDiffPct(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}
