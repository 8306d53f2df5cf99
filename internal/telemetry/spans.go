package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span names for the catalog pipeline. Keeping them in one place makes
// dashboards greppable.
const (
	SpanIngest      = "catalog.ingest"
	SpanImport      = "catalog.import_folder"
	SpanApplyResult = "catalog.apply_result"
	SpanAnalyze     = "vision.analyze"
	SpanClassify    = "vision.classify"
	SpanTask        = "enrich.task"
)

// Attribute keys used on pipeline spans.
var (
	AttrImageID  = attribute.Key("sticker.image_id")
	AttrTaskID   = attribute.Key("sticker.task_id")
	AttrHash     = attribute.Key("sticker.hash")
	AttrCategory = attribute.Key("sticker.category")
	AttrAttempts = attribute.Key("sticker.attempts")
	AttrCacheHit = attribute.Key("sticker.cache_hit")
)
