package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies the kind of actionable event derived from a contract.
type EventType string

const (
	EventPaymentReminder       EventType = "payment_reminder"
	EventRenewalAlert          EventType = "renewal_alert"
	EventNoticeDeadline        EventType = "notice_deadline"
	EventDepositReturnFollowUp EventType = "deposit_return_followup"
	EventMaintenanceCheck      EventType = "maintenance_check"
)

// Event is a dated actionable item derived from a contract record.
// Identity is (Type, DueDate, SourceField); no two events in a derived
// list may share that key.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	DueDate     Date      `json:"due_date"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SourceField string    `json:"source_field"`
	Overdue     bool      `json:"overdue"`
}

// IdentityKey renders the event identity used for deduplication.
func (e Event) IdentityKey() string {
	return fmt.Sprintf("%s:%s:%s", e.Type, e.DueDate, e.SourceField)
}

// Severity ranks how badly a missing field hurts the contract record.
type Severity int

const (
	SeverityOptional Severity = iota
	SeverityImportant
	SeverityRequired
)

func (s Severity) String() string {
	switch s {
	case SeverityRequired:
		return "required"
	case SeverityImportant:
		return "important"
	default:
		return "optional"
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v {
	case "required":
		*s = SeverityRequired
	case "important":
		*s = SeverityImportant
	case "optional":
		*s = SeverityOptional
	default:
		return fmt.Errorf("unknown severity %q", v)
	}
	return nil
}

// Gap flags a missing or incomplete field in a contract record.
type Gap struct {
	FieldPath       string   `json:"field_path"`
	Severity        Severity `json:"severity"`
	Description     string   `json:"description"`
	SuggestedAction string   `json:"suggested_action"`
}

// PipelineResult is the complete output of one analysis request.
// Errors is always empty on success; a failed pipeline never produces
// a partial result.
type PipelineResult struct {
	OCRText        string                   `json:"ocr_text"`
	Contract       *ContractRecord          `json:"contract"`
	Events         []Event                  `json:"events"`
	Gaps           []Gap                    `json:"gaps"`
	BackendUsed    string                   `json:"backend_used"`
	StageDurations map[string]time.Duration `json:"stage_durations"`
	Errors         []string                 `json:"errors"`
}

// Analysis tracks one analysis request in the in-memory store.
// ObjectName is the archive key of the uploaded PDF; empty when the
// upload was not archived.
type Analysis struct {
	ID         string          `json:"id"`
	Filename   string          `json:"filename"`
	Tenant     string          `json:"tenant"`
	ObjectName string          `json:"-"`
	Status     string          `json:"status"`
	Result     *PipelineResult `json:"result,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	ErrorMsg   string          `json:"error_msg,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Analysis status constants
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
