package dispatchaudit

import "time"

type Status string

const (
	StatusDispatched      Status = "dispatched"
	StatusDuplicate       Status = "duplicate"
	StatusFailed          Status = "failed"
	StatusNothingToReport Status = "nothing_to_report"
)

// Entry is one audit row, written for every outcome.
type Entry struct {
	ID           string
	OperationKey string
	Operation    string
	ItemCount    int
	Status       Status
	RelayStatus  int
	Attempts     int
	ErrorMessage string
	Metadata     map[string]any
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}
