package notification

// Alert type values. Anything else supplied by a device passes through
// untouched; these are only the values the bundled frontend understands.
const (
	AlertInfo      = "info"
	AlertWarning   = "warning"
	AlertEmergency = "emergency"
)

// Record is a single visitor/alert notification.
//
// The JSON field names match the document layout the original gateway
// wrote to notifications.json; external tooling reads that file directly,
// so the layout is a compatibility contract.
//
// Records are immutable once appended to the store and are never deleted
// by this subsystem (retention is out of scope).
type Record struct {
	// ID is the server-generated UUID, assigned at ingestion. Never reused.
	ID string `json:"id"`

	// Free-form fields supplied by the reporting device. No validation
	// beyond presence: absent fields stay empty.
	Name     string `json:"name,omitempty"`
	Time     string `json:"time,omitempty"`
	Message  string `json:"message,omitempty"`
	Location string `json:"location,omitempty"`

	// ImageRef is the serving path of the stored attachment, or nil when
	// the device sent no image.
	ImageRef *string `json:"image"`

	// AlertType is the severity/category tag. Defaults to "info" when the
	// device omits it.
	AlertType string `json:"alert_type"`
}

// Fields is the set of device-supplied values for one ingestion.
type Fields struct {
	Name      string
	Time      string
	Message   string
	Location  string
	AlertType string
}

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
