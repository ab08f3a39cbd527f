package camera

import (
	"encoding/json"
	"os"
)

// Camera is one configured camera endpoint.
//
// The JSON layout matches the inventory document the frontend consumes;
// IP carries the full base URL of the camera's stream host, not a bare
// address, because that is what installers put in the file.
type Camera struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	IP   string `json:"ip"`
}

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Repository reads the camera inventory document.
//
// Installers edit cameras.json in place while the service runs, so the
// document is re-read on every List call rather than cached; the file
// is a handful of entries and the read cost is negligible.
type Repository struct {
	path   string
	logger Logger
}

// NewRepository creates a repository over the given inventory path.
// A missing or unreadable document is not an error; the inventory is
// simply empty.
func NewRepository(path string) *Repository {
	return &Repository{
		path:   path,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the repository.
func (r *Repository) SetLogger(logger Logger) {
	r.logger = logger
}

// List reads the inventory document and returns its entries. Any read
// or parse failure yields an empty inventory and logs a warning, so a
// document deleted or corrupted on disk empties the list immediately.
func (r *Repository) List() []Camera {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("camera inventory unreadable", "path", r.path, "error", err)
		}
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var cameras []Camera
	if err := json.Unmarshal(data, &cameras); err != nil {
		r.logger.Warn("camera inventory malformed, serving empty", "path", r.path, "error", err)
		return nil
	}
	return cameras
}

// Path returns the inventory document path.
func (r *Repository) Path() string {
	return r.path
}
