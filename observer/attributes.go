package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for execution observability spans and metrics.
var (
	AttrExecBackend     = attribute.Key("exec.backend")
	AttrExecStatus      = attribute.Key("exec.status")
	AttrExecTimedOut    = attribute.Key("exec.timed_out")
	AttrExecCodeBytes   = attribute.Key("exec.code_bytes")
	AttrExecOutputBytes = attribute.Key("exec.output_bytes")

	AttrRewriteKind = attribute.Key("rewrite.kind")
)
