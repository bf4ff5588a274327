package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments the store and maintenance loop record
// against, built once at startup and passed down by reference.
type Metrics struct {
	NodeCount       metric.Int64UpDownCounter
	EdgeCount       metric.Int64UpDownCounter
	TokenEstimate   metric.Int64UpDownCounter
	SessionCount    metric.Int64UpDownCounter
	ArchivedTotal   metric.Int64Counter
	RecalledTotal   metric.Int64Counter
	OrphanedDeleted metric.Int64Counter
	SaveDuration    metric.Float64Histogram
	SaveErrors      metric.Int64Counter
	ExternalChanges metric.Int64Counter

	mu   sync.Mutex
	last map[string][3]int64 // level -> (nodes, edges, tokens) as of the last SetGraphSize call
}

// NewMetrics registers every kgraph instrument against meter. meter is
// typically otel.Meter("github.com/kgraph-ai/kgraph") against the provider
// built by Setup.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{last: make(map[string][3]int64)}
	var err error

	if m.NodeCount, err = meter.Int64UpDownCounter(
		"kgraph.nodes", metric.WithDescription("active node count per graph level"), metric.WithUnit("{node}"),
	); err != nil {
		return nil, fmt.Errorf("nodes counter: %w", err)
	}
	if m.EdgeCount, err = meter.Int64UpDownCounter(
		"kgraph.edges", metric.WithDescription("edge count per graph level"), metric.WithUnit("{edge}"),
	); err != nil {
		return nil, fmt.Errorf("edges counter: %w", err)
	}
	if m.TokenEstimate, err = meter.Int64UpDownCounter(
		"kgraph.token_estimate", metric.WithDescription("estimated active token cost per graph level"), metric.WithUnit("{token}"),
	); err != nil {
		return nil, fmt.Errorf("token estimate counter: %w", err)
	}
	if m.SessionCount, err = meter.Int64UpDownCounter(
		"kgraph.sessions", metric.WithDescription("live session count"), metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("session counter: %w", err)
	}
	if m.ArchivedTotal, err = meter.Int64Counter(
		"kgraph.nodes.archived", metric.WithDescription("nodes archived by the compactor"), metric.WithUnit("{node}"),
	); err != nil {
		return nil, fmt.Errorf("archived counter: %w", err)
	}
	if m.RecalledTotal, err = meter.Int64Counter(
		"kgraph.nodes.recalled", metric.WithDescription("archived nodes recalled back to active"), metric.WithUnit("{node}"),
	); err != nil {
		return nil, fmt.Errorf("recalled counter: %w", err)
	}
	if m.OrphanedDeleted, err = meter.Int64Counter(
		"kgraph.nodes.orphan_deleted", metric.WithDescription("archived nodes deleted after the orphan grace period"), metric.WithUnit("{node}"),
	); err != nil {
		return nil, fmt.Errorf("orphan deleted counter: %w", err)
	}
	if m.SaveDuration, err = meter.Float64Histogram(
		"kgraph.save.duration", metric.WithDescription("time spent writing a level's document to disk"), metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("save duration histogram: %w", err)
	}
	if m.SaveErrors, err = meter.Int64Counter(
		"kgraph.save.errors", metric.WithDescription("failed Save calls"), metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("save errors counter: %w", err)
	}
	if m.ExternalChanges, err = meter.Int64Counter(
		"kgraph.external_changes", metric.WithDescription("graph file changes detected on disk that the store did not itself write"), metric.WithUnit("{change}"),
	); err != nil {
		return nil, fmt.Errorf("external changes counter: %w", err)
	}

	return m, nil
}

// SetGraphSize records the current node/edge/token snapshot for one level.
// The underlying instruments are up-down counters, so SetGraphSize tracks
// the previous reading per level and records only the delta, making the
// exported series behave like a gauge despite the counter instrument type.
func (m *Metrics) SetGraphSize(ctx context.Context, level string, nodes, edges, tokens int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(levelAttr(level))

	m.mu.Lock()
	prev := m.last[level]
	m.last[level] = [3]int64{nodes, edges, tokens}
	m.mu.Unlock()

	m.NodeCount.Add(ctx, nodes-prev[0], attrs)
	m.EdgeCount.Add(ctx, edges-prev[1], attrs)
	m.TokenEstimate.Add(ctx, tokens-prev[2], attrs)
}
