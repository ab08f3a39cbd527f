package notification

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

// attachmentPermissions is the file mode for stored attachment images.
// Attachments are served back over HTTP, so they are world-readable.
const attachmentPermissions = 0644

// Service handles notification ingestion from edge devices.
type Service struct {
	store     *Store
	uploadDir string
	logger    Logger
}

// NewService creates the ingestion service, ensuring the upload
// directory exists.
func NewService(store *Store, uploadDir string) (*Service, error) {
	if err := os.MkdirAll(uploadDir, storeDirPermissions); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &Service{
		store:     store,
		uploadDir: uploadDir,
		logger:    noopLogger{},
	}, nil
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// Ingest validates and persists one incoming visitor/alert event.
//
// A fresh UUID is generated per call. If attachment bytes are present
// they are written to the upload directory as <id>.jpg BEFORE the record
// is appended, so a persisted record never points at a missing file.
// The reverse can still happen: a crash between the two writes leaves an
// orphaned image with no record. That window is accepted; the two writes
// have no combined atomicity.
//
// Field handling is deliberately permissive: absent fields pass through
// as empty and alert_type defaults to "info". Edge devices are
// best-effort reporters and a half-filled event is still worth keeping.
//
// Parameters:
//   - ctx: Context for cancellation
//   - fields: Device-supplied form fields (any subset may be empty)
//   - attachment: Optional image bytes (nil/empty for none)
//
// Returns:
//   - string: The generated notification id
//   - error: ErrAttachmentWrite or ErrAppendFailed; nil otherwise
func (s *Service) Ingest(ctx context.Context, fields Fields, attachment []byte) (string, error) {
	id := uuid.NewString()

	var imageRef *string
	if len(attachment) > 0 {
		diskPath := filepath.Join(s.uploadDir, id+".jpg")
		if err := os.WriteFile(diskPath, attachment, attachmentPermissions); err != nil {
			return "", fmt.Errorf("%w: %w", ErrAttachmentWrite, err)
		}
		// The stored reference is the serving path, not the disk path.
		ref := path.Join("uploads", id+".jpg")
		imageRef = &ref
	}

	alertType := fields.AlertType
	if alertType == "" {
		alertType = AlertInfo
	}

	rec := Record{
		ID:        id,
		Name:      fields.Name,
		Time:      fields.Time,
		Message:   fields.Message,
		Location:  fields.Location,
		ImageRef:  imageRef,
		AlertType: alertType,
	}

	if err := s.store.Append(ctx, rec); err != nil {
		return "", err
	}

	s.logger.Info("notification ingested",
		"id", id,
		"alert_type", alertType,
		"has_image", imageRef != nil,
	)
	return id, nil
}

// UploadDir returns the attachment directory path (used by the static
// file route).
func (s *Service) UploadDir() string {
	return s.uploadDir
}
