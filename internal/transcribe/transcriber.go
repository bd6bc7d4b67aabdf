package transcribe

import (
	"context"
	"errors"
)

// ErrTranscriptionUnavailable means the recording could not be turned into
// text. The scoring engine degrades the affected answer instead of failing
// the whole assessment.
var ErrTranscriptionUnavailable = errors.New("transcription unavailable")

// Transcriber converts one recorded answer into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, assessmentID, questionKey, recordingURL string) (string, error)
}
