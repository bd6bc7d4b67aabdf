package session

import (
	"context"
	"errors"

	"github.com/innovativesol/voice-assessment/internal/models"
)

var (
	// ErrNotFound means no session exists for the assessment id.
	ErrNotFound = errors.New("session not found")
	// ErrRevisionConflict means the session changed since it was read. The
	// caller must re-read and re-apply its transition.
	ErrRevisionConflict = errors.New("session revision conflict")
	// ErrAlreadyExists means Create raced another initiation for the same id.
	ErrAlreadyExists = errors.New("session already exists")
)

// Store is the durable home of call sessions. Get returns the session together
// with an opaque revision; Put only succeeds when the stored revision still
// matches, so concurrent webhook deliveries cannot silently overwrite each
// other's transitions.
type Store interface {
	Get(ctx context.Context, assessmentID string) (*models.CallSession, string, error)
	Put(ctx context.Context, session *models.CallSession, revision string) (string, error)
	Create(ctx context.Context, session *models.CallSession) (string, error)
}
