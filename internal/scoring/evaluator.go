package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/innovativesol/voice-assessment/internal/config"
	"github.com/innovativesol/voice-assessment/internal/llm"
	"github.com/innovativesol/voice-assessment/internal/models"
	"github.com/rs/zerolog"
)

// AnswerEvaluator scores a batch of transcripts against their rubrics.
type AnswerEvaluator interface {
	EvaluateBatch(ctx context.Context, role config.Role, transcripts map[string]string) (map[string]models.ScoredAnswer, error)
}

// Evaluator grades all transcripts of an assessment in a single model call.
// One batched call keeps the grading consistent across questions and costs a
// fraction of per-question calls.
type Evaluator struct {
	client      llm.Client
	maxTokens   int
	temperature float64
	logger      *zerolog.Logger
}

func NewEvaluator(client llm.Client, logger *zerolog.Logger) *Evaluator {
	return &Evaluator{
		client:      client,
		maxTokens:   2048,
		temperature: 0.0,
		logger:      logger,
	}
}

// evaluatedAnswer is one element of the JSON array the model must return.
type evaluatedAnswer struct {
	QuestionID string  `json:"question_id"`
	Tier       string  `json:"tier"`
	Score      float64 `json:"score"`
	Reasoning  string  `json:"reasoning"`
}

// EvaluateBatch sends every transcript with its rubric in one prompt and
// parses the model's verdicts. The model must echo back exactly the question
// ids it was given; any mismatch rejects the whole batch, because a response
// that lost track of ids cannot be trusted for any single answer either.
func (e *Evaluator) EvaluateBatch(ctx context.Context, role config.Role, transcripts map[string]string) (map[string]models.ScoredAnswer, error) {
	if len(transcripts) == 0 {
		return map[string]models.ScoredAnswer{}, nil
	}

	prompt := buildBatchPrompt(role, transcripts)

	response, err := e.client.InvokeModelWithRetry(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("invoke evaluation model: %w", err)
	}

	parsed, err := parseEvaluations(response.Content)
	if err != nil {
		return nil, err
	}

	if err := validateEcho(parsed, transcripts); err != nil {
		return nil, err
	}

	answers := make(map[string]models.ScoredAnswer, len(parsed))
	for _, item := range parsed {
		answers[item.QuestionID] = e.normalize(role, item)
	}
	return answers, nil
}

// normalize maps a raw model verdict onto the question's rubric. An unknown
// tier becomes an evaluation error instead of a guess; an out-of-range score
// falls back to the rubric score of the returned tier.
func (e *Evaluator) normalize(role config.Role, item evaluatedAnswer) models.ScoredAnswer {
	tier := models.Tier(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(item.Tier)), " ", "_"))

	question, ok := role.Questions[item.QuestionID]
	if !ok {
		return evaluationError(item.QuestionID, fmt.Sprintf("model returned unknown question id %q", item.QuestionID))
	}
	if _, ok := question.Rubric[tier]; !ok {
		e.logger.Warn().Str("question", item.QuestionID).Str("tier", item.Tier).Msg("model returned unknown tier")
		return evaluationError(item.QuestionID, fmt.Sprintf("model returned unknown tier %q", item.Tier))
	}

	score := item.Score
	if score < 0 || score > question.MaxScore() {
		score = question.TierScore(tier)
	}

	return models.ScoredAnswer{
		QuestionKey: item.QuestionID,
		Tier:        tier,
		Score:       score,
		Reasoning:   item.Reasoning,
	}
}

// parseEvaluations extracts the JSON array from the model output, tolerating
// markdown code fences around it.
func parseEvaluations(content string) ([]evaluatedAnswer, error) {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	var parsed []evaluatedAnswer
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("parse evaluation response: %w", err)
	}
	return parsed, nil
}

// validateEcho enforces that the returned question ids are exactly the set
// that was asked, no more, no fewer, no duplicates.
func validateEcho(parsed []evaluatedAnswer, transcripts map[string]string) error {
	seen := make(map[string]bool, len(parsed))
	for _, item := range parsed {
		if seen[item.QuestionID] {
			return fmt.Errorf("evaluation response repeats question id %q", item.QuestionID)
		}
		seen[item.QuestionID] = true
		if _, ok := transcripts[item.QuestionID]; !ok {
			return fmt.Errorf("evaluation response contains unexpected question id %q", item.QuestionID)
		}
	}
	for key := range transcripts {
		if !seen[key] {
			return fmt.Errorf("evaluation response is missing question id %q", key)
		}
	}
	return nil
}

func evaluationError(questionKey, reason string) models.ScoredAnswer {
	return models.ScoredAnswer{
		QuestionKey: questionKey,
		Tier:        models.TierEvaluationError,
		Score:       0,
		Reasoning:   reason,
	}
}

func buildBatchPrompt(role config.Role, transcripts map[string]string) string {
	keys := make([]string, 0, len(transcripts))
	for key := range transcripts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "You are grading a phone screening for the role of %s.\n", role.Name)
	b.WriteString("For each question below, classify the candidate's spoken answer into exactly one rubric tier.\n")
	b.WriteString("Answers are voice transcripts: ignore filler words, hesitations and transcription artifacts; judge the content.\n\n")

	for _, key := range keys {
		question := role.Questions[key]
		fmt.Fprintf(&b, "QUESTION_ID: %s\n", key)
		fmt.Fprintf(&b, "Question: %s\n", question.Prompt)
		b.WriteString("Rubric:\n")
		for _, tier := range models.RubricTiers {
			entry, ok := question.Rubric[tier]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "  - %s (score %.0f): %s\n", tier, entry.Score, entry.Description)
		}
		fmt.Fprintf(&b, "Candidate answer: %s\n\n", transcripts[key])
	}

	b.WriteString("Respond with a JSON array only, no prose. One object per question, in any order:\n")
	b.WriteString(`[{"question_id": "<QUESTION_ID exactly as given>", "tier": "<rubric tier>", "score": <number>, "reasoning": "<one sentence>"}]` + "\n")
	b.WriteString("Every QUESTION_ID above must appear exactly once.\n")
	return b.String()
}
