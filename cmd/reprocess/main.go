package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/innovativesol/voice-assessment/internal/models"
	"github.com/innovativesol/voice-assessment/internal/queue"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// reprocess re-enqueues an existing assessment for scoring, for jobs that
// failed or for rubric changes that warrant a re-run.
func main() {
	assessmentID := flag.String("id", "", "Assessment ID to rescore")
	role := flag.String("role", "", "Role key (optional, informational)")
	stream := flag.String("stream", queue.DefaultStream, "Stream name")
	flag.Parse()

	if *assessmentID == "" {
		fmt.Fprintln(os.Stderr, "Usage: reprocess -id <assessment_id>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	logger := log.Logger

	if err := run(*assessmentID, *role, *stream, &logger); err != nil {
		log.Error().Err(err).Msg("reprocess failed")
		os.Exit(1)
	}
}

func run(assessmentID, role, stream string, logger *zerolog.Logger) error {
	_ = godotenv.Load()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	ctx := context.Background()
	client, err := queue.ConnectRedis(ctx, addr, os.Getenv("REDIS_PASSWORD"), 3)
	if err != nil {
		return err
	}
	defer client.Close()

	producer := queue.NewProducer(client, stream, logger)
	return producer.Enqueue(ctx, models.ScoringJob{
		AssessmentID: assessmentID,
		Role:         role,
	})
}
