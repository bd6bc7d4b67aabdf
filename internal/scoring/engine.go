package scoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/innovativesol/voice-assessment/internal/config"
	"github.com/innovativesol/voice-assessment/internal/models"
	"github.com/innovativesol/voice-assessment/internal/session"
	"github.com/innovativesol/voice-assessment/internal/transcribe"
	"github.com/rs/zerolog"
)

// Engine turns a completed call session into an assessment result. Scoring is
// deterministic given the transcripts and model verdicts: same inputs, same
// recommendation.
type Engine struct {
	store       session.Store
	bank        *config.Bank
	transcriber transcribe.Transcriber
	evaluator   AnswerEvaluator
	logger      *zerolog.Logger
}

func NewEngine(store session.Store, bank *config.Bank, transcriber transcribe.Transcriber, evaluator AnswerEvaluator, logger *zerolog.Logger) *Engine {
	return &Engine{
		store:       store,
		bank:        bank,
		transcriber: transcriber,
		evaluator:   evaluator,
		logger:      logger,
	}
}

// Score runs the full pipeline for one job: transcribe recordings, evaluate
// transcripts, aggregate categories and derive the recommendation. Individual
// failures degrade the affected answers to evaluation errors; only a missing
// session or unknown role fails the job outright.
func (e *Engine) Score(ctx context.Context, job models.ScoringJob) (*models.AssessmentResult, error) {
	sess, _, err := e.store.Get(ctx, job.AssessmentID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", job.AssessmentID, err)
	}

	role, ok := e.bank.Role(sess.Role)
	if !ok {
		return nil, fmt.Errorf("session %s references unknown role %q", job.AssessmentID, sess.Role)
	}

	answers := make(map[string]models.ScoredAnswer, len(sess.Sequence))
	transcripts := make(map[string]string)

	for _, key := range sess.Sequence {
		response := sess.Responses[key]
		question := role.Questions[key]

		if response.NoResponse || response.RecordingURL == "" {
			answers[key] = noResponseAnswer(key, question, "Candidate did not answer this question.")
			continue
		}

		text := response.Transcript
		if text == "" {
			text, err = e.transcriber.Transcribe(ctx, job.AssessmentID, key, response.RecordingURL)
			if err != nil {
				e.logger.Error().Err(err).Str("assessment_id", job.AssessmentID).Str("question", key).Msg("transcription failed")
				answers[key] = evaluationError(key, fmt.Sprintf("transcription failed: %v", err))
				continue
			}
		}

		if strings.TrimSpace(text) == "" {
			answers[key] = noResponseAnswer(key, question, "Recording contained no intelligible speech.")
			continue
		}
		transcripts[key] = text
	}

	if len(transcripts) > 0 {
		scored, err := e.evaluator.EvaluateBatch(ctx, role, transcripts)
		if err != nil {
			e.logger.Error().Err(err).Str("assessment_id", job.AssessmentID).Msg("batch evaluation failed")
			for key := range transcripts {
				answers[key] = evaluationError(key, fmt.Sprintf("evaluation failed: %v", err))
			}
		} else {
			for key, answer := range scored {
				answers[key] = answer
			}
		}
	}

	categories := aggregateCategories(role, answers)

	passing := 0
	degraded := false
	for _, c := range categories {
		if c.Passed {
			passing++
		}
		if c.Degraded {
			degraded = true
		}
	}

	recommendation := role.Recommend(passing)
	reasoning := fmt.Sprintf("%d of %d categories met their thresholds.", passing, len(categories))
	if degraded {
		// Incomplete evidence never yields an automatic verdict either way.
		recommendation = models.RecommendationReview
		reasoning += " Some answers could not be evaluated; manual review required."
	}

	result := &models.AssessmentResult{
		AssessmentID:   sess.AssessmentID,
		Role:           sess.Role,
		Recommendation: recommendation,
		Reasoning:      reasoning,
		Categories:     categories,
		Transcripts:    transcripts,
		AnalyzedAt:     time.Now().UTC(),
	}

	e.logger.Info().
		Str("assessment_id", sess.AssessmentID).
		Str("recommendation", string(recommendation)).
		Int("passing_categories", passing).
		Bool("degraded", degraded).
		Msg("assessment scored")

	return result, nil
}

// aggregateCategories computes per-category averages and threshold checks in
// the role's category order.
func aggregateCategories(role config.Role, answers map[string]models.ScoredAnswer) []models.CategoryResult {
	results := make([]models.CategoryResult, 0, len(role.Categories))

	for _, category := range role.Categories {
		var total, maxTotal float64
		degraded := false
		scored := make([]models.ScoredAnswer, 0, len(category.Questions))

		for _, key := range category.Questions {
			answer, ok := answers[key]
			if !ok {
				answer = evaluationError(key, "no answer recorded for this question")
			}
			if answer.Tier == models.TierEvaluationError {
				degraded = true
			}
			total += answer.Score
			maxTotal += role.Questions[key].MaxScore()
			scored = append(scored, answer)
		}

		average := 0.0
		if len(scored) > 0 {
			average = total / float64(len(scored))
		}
		percentage := 0.0
		if maxTotal > 0 {
			percentage = total / maxTotal * 100
		}

		results = append(results, models.CategoryResult{
			CategoryKey:  category.Key,
			Name:         category.Name,
			AverageScore: average,
			Percentage:   percentage,
			Threshold:    category.Threshold,
			Passed:       percentage >= category.Threshold,
			Degraded:     degraded,
			Answers:      scored,
		})
	}

	return results
}

func noResponseAnswer(questionKey string, question config.Question, reason string) models.ScoredAnswer {
	return models.ScoredAnswer{
		QuestionKey: questionKey,
		Tier:        models.TierNoResponse,
		Score:       question.TierScore(models.TierNoResponse),
		Reasoning:   reason,
	}
}
