package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldPath      = "path"
	FieldBackend   = "backend"
	FieldAccount   = "account"
	FieldCurrency  = "currency"
	FieldWindow    = "window"
	FieldEntries   = "entries"
	FieldDuration  = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentDocument = "document"
	ComponentOven     = "oven"
	ComponentStorage  = "storage"
	ComponentRates    = "rates"
	ComponentConfig   = "config"
)

// Operations defines standard operation names
const (
	OpLoad    = "load"
	OpSave    = "save"
	OpCook    = "cook"
	OpMigrate = "migrate"
	OpFetch   = "fetch"
)
