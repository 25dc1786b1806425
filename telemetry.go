package callgraph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("github.com/jward/callgraph")
	meter  = otel.Meter("github.com/jward/callgraph")
)

var (
	buildLatency metric.Float64Histogram
	buildTotal   metric.Int64Counter
	buildNodes   metric.Int64Histogram
	buildEdges   metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics registers the build instruments once.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"callgraph_build_duration_seconds",
			metric.WithDescription("Duration of call graph builds including parsing"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"callgraph_build_total",
			metric.WithDescription("Total number of call graph builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildNodes, err = meter.Int64Histogram(
			"callgraph_build_nodes",
			metric.WithDescription("Nodes per built graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildEdges, err = meter.Int64Histogram(
			"callgraph_build_edges",
			metric.WithDescription("Call sites per built graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBuild records one build. g is nil when the build failed.
func recordBuild(ctx context.Context, duration time.Duration, g *Graph) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", g != nil))
	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)

	if g != nil {
		buildNodes.Record(ctx, int64(g.Len()))
		buildEdges.Record(ctx, int64(g.EdgeCount()))
	}
}
