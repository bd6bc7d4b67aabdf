package scoring

import (
	"context"

	"github.com/innovativesol/voice-assessment/internal/models"
	"github.com/rs/zerolog"
)

// ResultSink receives scored assessments and records failed jobs.
type ResultSink interface {
	Publish(ctx context.Context, result *models.AssessmentResult) error
	PublishFailure(ctx context.Context, assessmentID, role string) error
}

// JobHandler glues the scoring engine to the queue consumer: score the job,
// publish the outcome either way.
type JobHandler struct {
	scorer *Engine
	sink   ResultSink
	logger *zerolog.Logger
}

func NewJobHandler(scorer *Engine, sink ResultSink, logger *zerolog.Logger) *JobHandler {
	return &JobHandler{scorer: scorer, sink: sink, logger: logger}
}

func (h *JobHandler) Handle(ctx context.Context, job models.ScoringJob) error {
	result, err := h.scorer.Score(ctx, job)
	if err != nil {
		if failErr := h.sink.PublishFailure(ctx, job.AssessmentID, job.Role); failErr != nil {
			h.logger.Error().Err(failErr).Str("assessment_id", job.AssessmentID).Msg("failed to record scoring failure")
		}
		return err
	}

	return h.sink.Publish(ctx, result)
}
