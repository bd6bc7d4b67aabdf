package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/innovativesol/voice-assessment/internal/config"
	"github.com/innovativesol/voice-assessment/internal/models"
	"github.com/innovativesol/voice-assessment/internal/scoring/mocks"
	"github.com/innovativesol/voice-assessment/internal/session"
	"go.uber.org/mock/gomock"
)

func scoringBank() *config.Bank {
	question := func(prompt string) config.Question {
		return config.Question{
			Prompt: prompt,
			Rubric: map[models.Tier]config.RubricTier{
				models.TierIdeal:      {Score: 10},
				models.TierAcceptable: {Score: 7},
				models.TierRedFlag:    {Score: 3},
				models.TierNoResponse: {Score: 0},
			},
		}
	}

	return &config.Bank{
		Roles: map[string]config.Role{
			"bartender": {
				Key:      "bartender",
				Name:     "Bartender",
				Sequence: []string{"q1", "q2", "q3"},
				Categories: []config.Category{
					{Key: "drinks", Name: "Drink Knowledge", Threshold: 70, Questions: []string{"q1"}},
					{Key: "service", Name: "Service", Threshold: 70, Questions: []string{"q2"}},
					{Key: "safety", Name: "Safety", Threshold: 70, Questions: []string{"q3"}},
				},
				Questions: map[string]config.Question{
					"q1": question("first"),
					"q2": question("second"),
					"q3": question("third"),
				},
				Recommendation: config.RecommendationPolicy{PassRequires: 3, ReviewRequires: 2},
			},
		},
	}
}

func seedCompletedSession(t *testing.T, store *session.MemoryStore, id string) {
	t.Helper()
	now := time.Now().UTC()
	sess := &models.CallSession{
		AssessmentID: id,
		Role:         "bartender",
		Sequence:     []string{"q1", "q2", "q3"},
		Responses: map[string]models.QuestionResponse{
			"q1": {RecordingURL: "https://api.twilio.com/rec/q1", RecordedAt: now},
			"q2": {RecordingURL: "https://api.twilio.com/rec/q2", RecordedAt: now},
			"q3": {RecordingURL: "https://api.twilio.com/rec/q3", RecordedAt: now},
		},
		Status:      models.StatusCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	if _, err := store.Create(context.Background(), sess); err != nil {
		t.Fatalf("seed session failed: %v", err)
	}
}

func scoredAnswer(key string, tier models.Tier, score float64) models.ScoredAnswer {
	return models.ScoredAnswer{QuestionKey: key, Tier: tier, Score: score, Reasoning: "test"}
}

func TestScore_AllCategoriesPass(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := session.NewMemoryStore()
	seedCompletedSession(t, store, "bartender_20260101_120000_abc")

	transcriber := mocks.NewMockTranscriber(ctrl)
	transcriber.EXPECT().Transcribe(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("spoken answer", nil).Times(3)

	evaluator := mocks.NewMockAnswerEvaluator(ctrl)
	evaluator.EXPECT().EvaluateBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(map[string]models.ScoredAnswer{
		"q1": scoredAnswer("q1", models.TierIdeal, 10),
		"q2": scoredAnswer("q2", models.TierAcceptable, 7),
		"q3": scoredAnswer("q3", models.TierIdeal, 10),
	}, nil)

	engine := NewEngine(store, scoringBank(), transcriber, evaluator, testLogger())
	result, err := engine.Score(context.Background(), models.ScoringJob{AssessmentID: "bartender_20260101_120000_abc", Role: "bartender"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if result.Recommendation != models.RecommendationPass {
		t.Errorf("expected PASS, got %s", result.Recommendation)
	}
	if len(result.Categories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(result.Categories))
	}
	for _, c := range result.Categories {
		if !c.Passed {
			t.Errorf("category %s should pass at %.1f%%", c.CategoryKey, c.Percentage)
		}
	}
	if len(result.Transcripts) != 3 {
		t.Errorf("expected 3 transcripts, got %d", len(result.Transcripts))
	}
}

func TestScore_OneFailingCategoryGivesReview(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := session.NewMemoryStore()
	seedCompletedSession(t, store, "a1")

	transcriber := mocks.NewMockTranscriber(ctrl)
	transcriber.EXPECT().Transcribe(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("spoken answer", nil).Times(3)

	evaluator := mocks.NewMockAnswerEvaluator(ctrl)
	evaluator.EXPECT().EvaluateBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(map[string]models.ScoredAnswer{
		"q1": scoredAnswer("q1", models.TierIdeal, 10),
		"q2": scoredAnswer("q2", models.TierIdeal, 10),
		"q3": scoredAnswer("q3", models.TierRedFlag, 3), // 30% < 70%
	}, nil)

	engine := NewEngine(store, scoringBank(), transcriber, evaluator, testLogger())
	result, err := engine.Score(context.Background(), models.ScoringJob{AssessmentID: "a1"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if result.Recommendation != models.RecommendationReview {
		t.Errorf("expected REVIEW with 2 of 3 passing, got %s", result.Recommendation)
	}
}

func TestScore_MostCategoriesFailingGivesFail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := session.NewMemoryStore()
	seedCompletedSession(t, store, "a2")

	transcriber := mocks.NewMockTranscriber(ctrl)
	transcriber.EXPECT().Transcribe(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("spoken answer", nil).Times(3)

	evaluator := mocks.NewMockAnswerEvaluator(ctrl)
	evaluator.EXPECT().EvaluateBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(map[string]models.ScoredAnswer{
		"q1": scoredAnswer("q1", models.TierIdeal, 10),
		"q2": scoredAnswer("q2", models.TierRedFlag, 3),
		"q3": scoredAnswer("q3", models.TierRedFlag, 3),
	}, nil)

	engine := NewEngine(store, scoringBank(), transcriber, evaluator, testLogger())
	result, err := engine.Score(context.Background(), models.ScoringJob{AssessmentID: "a2"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if result.Recommendation != models.RecommendationFail {
		t.Errorf("expected FAIL with 1 of 3 passing, got %s", result.Recommendation)
	}
}

func TestScore_NoResponseSkipsTranscriptionAndEvaluation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := session.NewMemoryStore()
	now := time.Now().UTC()
	sess := &models.CallSession{
		AssessmentID: "a3",
		Role:         "bartender",
		Sequence:     []string{"q1", "q2", "q3"},
		Responses: map[string]models.QuestionResponse{
			"q1": {RecordingURL: "https://api.twilio.com/rec/q1", RecordedAt: now},
			"q2": {NoResponse: true, RecordedAt: now},
			"q3": {RecordingURL: "https://api.twilio.com/rec/q3", RecordedAt: now},
		},
		Status:      models.StatusCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &now,
	}
	if _, err := store.Create(context.Background(), sess); err != nil {
		t.Fatalf("seed session failed: %v", err)
	}

	transcriber := mocks.NewMockTranscriber(ctrl)
	// Only the two answered questions reach the transcriber.
	transcriber.EXPECT().Transcribe(gomock.Any(), "a3", "q1", gomock.Any()).Return("answer one", nil)
	transcriber.EXPECT().Transcribe(gomock.Any(), "a3", "q3", gomock.Any()).Return("answer three", nil)

	evaluator := mocks.NewMockAnswerEvaluator(ctrl)
	evaluator.EXPECT().EvaluateBatch(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ config.Role, transcripts map[string]string) (map[string]models.ScoredAnswer, error) {
			if _, ok := transcripts["q2"]; ok {
				t.Error("unanswered question must not reach the evaluator")
			}
			return map[string]models.ScoredAnswer{
				"q1": scoredAnswer("q1", models.TierIdeal, 10),
				"q3": scoredAnswer("q3", models.TierIdeal, 10),
			}, nil
		})

	engine := NewEngine(store, scoringBank(), transcriber, evaluator, testLogger())
	result, err := engine.Score(context.Background(), models.ScoringJob{AssessmentID: "a3"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	var serviceCategory models.CategoryResult
	for _, c := range result.Categories {
		if c.CategoryKey == "service" {
			serviceCategory = c
		}
	}
	if serviceCategory.Answers[0].Tier != models.TierNoResponse {
		t.Errorf("expected no_response tier, got %s", serviceCategory.Answers[0].Tier)
	}
	if serviceCategory.Answers[0].Score != 0 {
		t.Errorf("expected score 0, got %f", serviceCategory.Answers[0].Score)
	}
	if serviceCategory.Degraded {
		t.Error("no_response is a real outcome, not a degradation")
	}
}

func TestScore_TranscriptionFailureForcesReview(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := session.NewMemoryStore()
	seedCompletedSession(t, store, "a4")

	transcriber := mocks.NewMockTranscriber(ctrl)
	transcriber.EXPECT().Transcribe(gomock.Any(), "a4", "q1", gomock.Any()).Return("", errors.New("job failed"))
	transcriber.EXPECT().Transcribe(gomock.Any(), "a4", "q2", gomock.Any()).Return("answer", nil)
	transcriber.EXPECT().Transcribe(gomock.Any(), "a4", "q3", gomock.Any()).Return("answer", nil)

	evaluator := mocks.NewMockAnswerEvaluator(ctrl)
	evaluator.EXPECT().EvaluateBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(map[string]models.ScoredAnswer{
		"q2": scoredAnswer("q2", models.TierIdeal, 10),
		"q3": scoredAnswer("q3", models.TierIdeal, 10),
	}, nil)

	engine := NewEngine(store, scoringBank(), transcriber, evaluator, testLogger())
	result, err := engine.Score(context.Background(), models.ScoringJob{AssessmentID: "a4"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if result.Recommendation != models.RecommendationReview {
		t.Errorf("expected REVIEW when evidence is incomplete, got %s", result.Recommendation)
	}
	if !strings.Contains(result.Reasoning, "manual review") {
		t.Errorf("expected degradation note in reasoning, got %q", result.Reasoning)
	}
}

func TestScore_BatchEvaluationFailureForcesReview(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := session.NewMemoryStore()
	seedCompletedSession(t, store, "a5")

	transcriber := mocks.NewMockTranscriber(ctrl)
	transcriber.EXPECT().Transcribe(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("answer", nil).Times(3)

	evaluator := mocks.NewMockAnswerEvaluator(ctrl)
	evaluator.EXPECT().EvaluateBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("echo mismatch"))

	engine := NewEngine(store, scoringBank(), transcriber, evaluator, testLogger())
	result, err := engine.Score(context.Background(), models.ScoringJob{AssessmentID: "a5"})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if result.Recommendation != models.RecommendationReview {
		t.Errorf("expected REVIEW after evaluation failure, got %s", result.Recommendation)
	}
	for _, c := range result.Categories {
		if !c.Degraded {
			t.Errorf("category %s should be degraded", c.CategoryKey)
		}
		for _, a := range c.Answers {
			if a.Tier != models.TierEvaluationError {
				t.Errorf("expected evaluation_error, got %s", a.Tier)
			}
		}
	}
}

func TestScore_MissingSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := NewEngine(session.NewMemoryStore(), scoringBank(), mocks.NewMockTranscriber(ctrl), mocks.NewMockAnswerEvaluator(ctrl), testLogger())

	_, err := engine.Score(context.Background(), models.ScoringJob{AssessmentID: "ghost"})
	if !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestJobHandler_PublishesResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := session.NewMemoryStore()
	seedCompletedSession(t, store, "a6")

	transcriber := mocks.NewMockTranscriber(ctrl)
	transcriber.EXPECT().Transcribe(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("answer", nil).Times(3)

	evaluator := mocks.NewMockAnswerEvaluator(ctrl)
	evaluator.EXPECT().EvaluateBatch(gomock.Any(), gomock.Any(), gomock.Any()).Return(map[string]models.ScoredAnswer{
		"q1": scoredAnswer("q1", models.TierIdeal, 10),
		"q2": scoredAnswer("q2", models.TierIdeal, 10),
		"q3": scoredAnswer("q3", models.TierIdeal, 10),
	}, nil)

	sink := mocks.NewMockResultSink(ctrl)
	sink.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	engine := NewEngine(store, scoringBank(), transcriber, evaluator, testLogger())
	handler := NewJobHandler(engine, sink, testLogger())

	if err := handler.Handle(context.Background(), models.ScoringJob{AssessmentID: "a6", Role: "bartender"}); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
}

func TestJobHandler_RecordsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := mocks.NewMockResultSink(ctrl)
	sink.EXPECT().PublishFailure(gomock.Any(), "ghost", "bartender").Return(nil)

	engine := NewEngine(session.NewMemoryStore(), scoringBank(), mocks.NewMockTranscriber(ctrl), mocks.NewMockAnswerEvaluator(ctrl), testLogger())
	handler := NewJobHandler(engine, sink, testLogger())

	err := handler.Handle(context.Background(), models.ScoringJob{AssessmentID: "ghost", Role: "bartender"})
	if err == nil {
		t.Error("expected error for missing session")
	}
}
