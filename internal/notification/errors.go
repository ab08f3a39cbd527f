package notification

import "errors"

// Domain errors for the notification package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, notification.ErrAttachmentWrite) {
//	    // handle attachment failure
//	}
var (
	// ErrAttachmentWrite is returned when the image attachment cannot be
	// written to the upload directory. The whole ingestion fails: a record
	// must never reference an attachment that is not on disk.
	ErrAttachmentWrite = errors.New("notification: attachment write failed")

	// ErrAppendFailed is returned when persisting an appended record fails.
	// The in-memory collection is rolled back so memory and disk agree.
	ErrAppendFailed = errors.New("notification: store append failed")

	// ErrStoreClosed is returned when appending to a closed store.
	ErrStoreClosed = errors.New("notification: store closed")
)
