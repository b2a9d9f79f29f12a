package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldRoute     = "route"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID   = "user_id"
	FieldUserName = "user_name"

	// Service
	FieldService = "service"

	// Entities
	FieldPostID    = "post_id"
	FieldESID      = "es_id"
	FieldCommentID = "comment_id"
	FieldTargetID  = "target_id"

	// Saga / outbox
	FieldSaga     = "saga"
	FieldStep     = "step"
	FieldTaskKind = "task_kind"
	FieldTopic    = "topic"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
