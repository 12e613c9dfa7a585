package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for queue item identifiers.
	FieldItemID = "item_id"
	// FieldStage is the standardized structured logging key for workflow stage names.
	FieldStage = "stage"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType labels the machine-readable event category of a log line.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested operator next step for a failure.
	FieldErrorHint = "error_hint"
	// FieldProgressPercent is the standardized key for stage progress percentages.
	FieldProgressPercent = "progress_percent"
	// FieldProgressMessage is the standardized key for human progress descriptions.
	FieldProgressMessage = "progress_message"
	// FieldDestination identifies the publishing destination a log line refers to.
	FieldDestination = "destination"
	// FieldSourceURL identifies the source media URL a log line refers to.
	FieldSourceURL = "source_url"
)
