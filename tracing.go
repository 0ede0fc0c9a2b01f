package hardstep

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// clusterStepSpan starts one span per cluster hard step (§5's fork-join
// model: one worker per cluster). tracer defaults to the global no-op
// tracer when the host process has not installed an SDK, so this never
// allocates a real exporter pipeline on its own.
func clusterStepSpan(ctx context.Context, tracer trace.Tracer, stepID string, clusterSize, groupCount int) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = otel.Tracer("hardstep")
	}
	return tracer.Start(ctx, "hardstep.cluster_step", trace.WithAttributes(
		attribute.String("hardstep.cluster_step_id", stepID),
		attribute.Int("hardstep.cluster_size", clusterSize),
		attribute.Int("hardstep.group_count", groupCount),
	))
}
