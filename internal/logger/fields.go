package logger

// Standard field keys for structured logging. Use these consistently across
// log statements so catalog, worker, and API logs can be correlated.
const (
	// Catalog entities
	KeyImageID  = "image_id"  // image row id
	KeyTaskID   = "task_id"   // ai_task row id
	KeyHash     = "hash"      // content SHA-256 (hex)
	KeyCategory = "category"  // category name
	KeyPath     = "path"      // blob path
	KeySize     = "size"      // byte length
	KeyMimeType = "mime_type" // detected MIME type

	// Worker loop
	KeyStatus   = "status"   // task status
	KeyAttempts = "attempts" // failed attempt count
	KeyActive   = "active"   // in-flight task count
	KeyClaimed  = "claimed"  // tasks claimed in a poll round

	// HTTP
	KeyMethod     = "method"
	KeyRequestURI = "uri"
	KeyRemoteAddr = "remote_addr"
	KeyStatusCode = "status_code"
	KeyDurationMS = "duration_ms"
)
