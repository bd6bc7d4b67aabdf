package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/innovativesol/voice-assessment/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultStream is the stream scoring jobs travel on.
const DefaultStream = "scoring-jobs"

// Producer appends scoring jobs to the stream. It satisfies the call-flow
// engine's enqueuer.
type Producer struct {
	client *redis.Client
	stream string
	logger *zerolog.Logger
}

func NewProducer(client *redis.Client, stream string, logger *zerolog.Logger) *Producer {
	if stream == "" {
		stream = DefaultStream
	}
	return &Producer{client: client, stream: stream, logger: logger}
}

func (p *Producer) Enqueue(ctx context.Context, job models.ScoringJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode scoring job: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"payload": string(payload)},
	}).Result()
	if err != nil {
		return fmt.Errorf("enqueue scoring job %s: %w", job.AssessmentID, err)
	}

	p.logger.Info().
		Str("stream", p.stream).
		Str("id", id).
		Str("assessment_id", job.AssessmentID).
		Msg("scoring job published")
	return nil
}
