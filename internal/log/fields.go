package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldEndpoint      = "endpoint"
	FieldCacheKey      = "cache_key"
	FieldEpoch         = "epoch"
	FieldPage          = "page"
	FieldNextPage      = "next_page"
	FieldEmployeeID    = "employee_id"
	FieldTransactionID = "transaction_id"
	FieldApproved      = "approved"
	FieldCount         = "count"
	FieldMode          = "mode"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentAPI      = "api"
	ComponentFetch    = "fetch"
	ComponentCache    = "cache"
	ComponentStore    = "store"
	ComponentView     = "view"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentLedger   = "ledger"
	ComponentBackend  = "backend"
	ComponentApproval = "approval"
)

// Operations defines standard operation names
const (
	OpFetch      = "fetch"
	OpInvalidate = "invalidate"
	OpApprove    = "approve"
	OpSelect     = "select"
	OpLoadMore   = "load_more"
	OpPublish    = "publish"
	OpConsume    = "consume"
	OpAppend     = "append"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithError adds the error text; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithFetch adds the endpoint and cache key of a fetch.
func (f LogFields) WithFetch(endpoint, key string) LogFields {
	f[FieldEndpoint] = endpoint
	f[FieldCacheKey] = key
	return f
}

func (f LogFields) WithApproval(transactionID string, approved bool) LogFields {
	f[FieldTransactionID] = transactionID
	f[FieldApproved] = approved
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
