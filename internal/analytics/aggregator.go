package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/kafka"
)

type AggregatedStats struct {
	TotalMatches     int64            `json:"total_matches"`
	TotalIndexOps    int64            `json:"total_index_operations"`
	ChunksBySource   map[string]int64 `json:"chunks_by_source"`
	Grades           map[string]int64 `json:"grades"`
	AvgScore         float64          `json:"avg_score"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
	P50LatencyMs     int64            `json:"p50_latency_ms"`
	P95LatencyMs     int64            `json:"p95_latency_ms"`
	P99LatencyMs     int64            `json:"p99_latency_ms"`
	TopMissingSkills []SkillCount     `json:"top_missing_skills"`
	MatchesPerMinute float64          `json:"matches_per_minute"`
}

type SkillCount struct {
	Skill string `json:"skill"`
	Count int64  `json:"count"`
}

// Snapshot is a persisted copy of the aggregate.
type Snapshot struct {
	CapturedAt time.Time       `json:"captured_at"`
	Stats      AggregatedStats `json:"stats"`
}

const (
	// maxLatencySamples bounds the latency window used for percentiles.
	maxLatencySamples = 10000
	defaultTopSkills  = 10
)

type Aggregator struct {
	mu            sync.RWMutex
	totalMatches  int64
	totalIndexOps int64
	scoreSum      float64
	chunks        map[string]int64
	grades        map[string]int64
	latencies     []int64
	missing       map[string]int64
	startTime     time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		chunks:    make(map[string]int64),
		grades:    make(map[string]int64),
		latencies: make([]int64, 0, 1024),
		missing:   make(map[string]int64),
		startTime: time.Now(),
		logger:    slog.Default().With("component", "analytics-aggregator"),
	}
}

// Attach sets the consumer Start reads from.
func (a *Aggregator) Attach(consumer *kafka.Consumer) {
	a.consumer = consumer
}

func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent returns a MessageHandler that routes events by their type.
// Undecodable or unknown events are logged and skipped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		env, err := kafka.DecodeJSON[envelope](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		switch env.Type {
		case EventMatch:
			event, err := kafka.DecodeJSON[MatchEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode match event", "error", err)
				return nil
			}
			agg.RecordMatch(event)
		case EventIndex:
			event, err := kafka.DecodeJSON[IndexEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode index event", "error", err)
				return nil
			}
			agg.RecordIndex(event)
		default:
			agg.logger.Warn("unknown analytics event type", "type", env.Type)
		}
		return nil
	}
}

func (a *Aggregator) RecordMatch(event MatchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalMatches++
	a.scoreSum += event.Total
	a.grades[event.Grade]++
	if len(a.latencies) >= maxLatencySamples {
		a.latencies = a.latencies[1:]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	for _, s := range event.MissingSkills {
		a.missing[s]++
	}
}

func (a *Aggregator) RecordIndex(event IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalIndexOps++
	a.chunks[event.Source] += int64(event.Chunks)
}

// Restore seeds the counters from a previous snapshot so totals survive a
// restart. Latency percentiles and the per-minute rate start over.
func (a *Aggregator) Restore(prev AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalMatches += prev.TotalMatches
	a.totalIndexOps += prev.TotalIndexOps
	a.scoreSum += prev.AvgScore * float64(prev.TotalMatches)
	for k, v := range prev.ChunksBySource {
		a.chunks[k] += v
	}
	for k, v := range prev.Grades {
		a.grades[k] += v
	}
	for _, sc := range prev.TopMissingSkills {
		a.missing[sc.Skill] += sc.Count
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	return a.Summary(defaultTopSkills)
}

// Summary is Stats with the missing-skills list cut to topSkills entries.
func (a *Aggregator) Summary(topSkills int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalMatches:   a.totalMatches,
		TotalIndexOps:  a.totalIndexOps,
		ChunksBySource: copyCounts(a.chunks),
		Grades:         copyCounts(a.grades),
	}
	if a.totalMatches > 0 {
		stats.AvgScore = a.scoreSum / float64(a.totalMatches)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopMissingSkills = topN(a.missing, topSkills)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.MatchesPerMinute = float64(stats.TotalMatches) / elapsed
	}
	return stats
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n largest counts; ties are ordered by name.
func topN(counts map[string]int64, n int) []SkillCount {
	result := make([]SkillCount, 0, len(counts))
	for skill, count := range counts {
		result = append(result, SkillCount{Skill: skill, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Skill < result[j].Skill
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
