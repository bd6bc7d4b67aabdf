package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/innovativesol/voice-assessment/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Handler processes one scoring job.
type Handler interface {
	Handle(ctx context.Context, job models.ScoringJob) error
}

// Consumer reads scoring jobs from the stream via a consumer group and hands
// them to the handler one at a time.
type Consumer struct {
	client       *redis.Client
	stream       string
	groupID      string
	consumerName string
	handler      Handler
	logger       *zerolog.Logger
}

func NewConsumer(client *redis.Client, stream, groupID, consumerName string, handler Handler, logger *zerolog.Logger) *Consumer {
	if stream == "" {
		stream = DefaultStream
	}
	return &Consumer{
		client:       client,
		stream:       stream,
		groupID:      groupID,
		consumerName: consumerName,
		handler:      handler,
		logger:       logger,
	}
}

func (c *Consumer) Setup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.groupID, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("stream", c.stream).
		Str("group", c.groupID).
		Str("consumer", c.consumerName).
		Msg("Consumer started")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msgs, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupID,
			Consumer: c.consumerName,
			Streams:  []string{c.stream, ">"},
			Count:    1,
			Block:    2 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				// timeout, no message -> loop again
				continue
			}

			if ctx.Err() != nil {
				return ctx.Err() // context cancelled during block
			}

			c.logger.Error().Err(err).Msg("Failed to read from stream")
			continue
		}

		for _, msg := range msgs[0].Messages {
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	c.logger.Info().Str("id", msg.ID).Msg("Message received")

	payload, ok := msg.Values["payload"].(string)
	if !ok {
		c.logger.Error().Str("id", msg.ID).Msg("Missing payload field")
		c.ack(ctx, msg.ID)
		return
	}

	var job models.ScoringJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		c.logger.Error().Err(err).Str("id", msg.ID).Msg("Failed to decode message")
		c.ack(ctx, msg.ID) // bad message — ACK to skip it
		return
	}

	if job.AssessmentID == "" {
		c.logger.Error().Str("id", msg.ID).Msg("Job without assessment id")
		c.ack(ctx, msg.ID)
		return
	}

	if err := c.handler.Handle(ctx, job); err != nil {
		// The job is acknowledged anyway; the reprocess command can replay an
		// assessment from its stored session.
		c.logger.Error().Err(err).Str("id", msg.ID).Str("assessment_id", job.AssessmentID).Msg("Scoring job failed")
	}

	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, msgID string) {
	if err := c.client.XAck(ctx, c.stream, c.groupID, msgID).Err(); err != nil {
		c.logger.Error().Err(err).Str("id", msgID).Msg("Failed to ACK message")
	}
}
