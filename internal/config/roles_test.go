package config

import (
	"strings"
	"testing"

	"github.com/innovativesol/voice-assessment/internal/models"
)

func validBank() *Bank {
	question := func(prompt string) Question {
		return Question{
			Prompt: prompt,
			Rubric: map[models.Tier]RubricTier{
				models.TierIdeal:      {Score: 10, Description: "ideal"},
				models.TierAcceptable: {Score: 7, Description: "acceptable"},
				models.TierRedFlag:    {Score: 3, Description: "red flag"},
				models.TierNoResponse: {Score: 0, Description: "none"},
			},
		}
	}

	return &Bank{
		Call: CallPolicy{
			RepeatCap:             3,
			TimeoutReprompts:      1,
			SilenceTimeoutSeconds: 5,
			RepromptWindowSeconds: 120,
			MaxRecordingSeconds:   120,
		},
		Roles: map[string]Role{
			"bartender": {
				Key:      "bartender",
				Name:     "Bartender",
				Sequence: []string{"q1", "q2"},
				Categories: []Category{
					{Key: "skills", Name: "Skills", Threshold: 70, Questions: []string{"q1"}},
					{Key: "service", Name: "Service", Threshold: 70, Questions: []string{"q2"}},
				},
				Questions: map[string]Question{
					"q1": question("first"),
					"q2": question("second"),
				},
				Recommendation: RecommendationPolicy{PassRequires: 2, ReviewRequires: 1},
			},
		},
	}
}

func TestLoadBank_ShippedConfig(t *testing.T) {
	bank, err := LoadBank("../../configs/roles.yaml")
	if err != nil {
		t.Fatalf("LoadBank failed: %v", err)
	}

	for _, roleKey := range []string{"bartender", "banquet_server", "host"} {
		role, ok := bank.Role(roleKey)
		if !ok {
			t.Errorf("expected role %s", roleKey)
			continue
		}
		if len(role.Sequence) == 0 {
			t.Errorf("role %s: empty sequence", roleKey)
		}
		if role.Recommendation.PassRequires == 0 {
			t.Errorf("role %s: missing recommendation policy", roleKey)
		}
	}

	if bank.Call.RepeatCap == 0 || bank.Call.MaxRecordingSeconds == 0 {
		t.Errorf("call policy defaults not applied: %+v", bank.Call)
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validBank().Validate(); err != nil {
		t.Errorf("expected valid bank, got %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Bank)
		wantErr string
	}{
		{
			name:    "no roles",
			mutate:  func(b *Bank) { b.Roles = nil },
			wantErr: "no roles",
		},
		{
			name: "empty category",
			mutate: func(b *Bank) {
				role := b.Roles["bartender"]
				role.Categories[0].Questions = nil
				b.Roles["bartender"] = role
			},
			wantErr: "has no questions",
		},
		{
			name: "question in two categories",
			mutate: func(b *Bank) {
				role := b.Roles["bartender"]
				role.Categories[1].Questions = []string{"q1"}
				b.Roles["bartender"] = role
			},
			wantErr: "assigned to both",
		},
		{
			name: "orphan question",
			mutate: func(b *Bank) {
				role := b.Roles["bartender"]
				role.Questions["q3"] = role.Questions["q1"]
				b.Roles["bartender"] = role
			},
			wantErr: "belongs to no category",
		},
		{
			name: "threshold out of range",
			mutate: func(b *Bank) {
				role := b.Roles["bartender"]
				role.Categories[0].Threshold = 140
				b.Roles["bartender"] = role
			},
			wantErr: "out of (0, 100]",
		},
		{
			name: "sequence misses a question",
			mutate: func(b *Bank) {
				role := b.Roles["bartender"]
				role.Sequence = []string{"q1"}
				b.Roles["bartender"] = role
			},
			wantErr: "sequence lists",
		},
		{
			name: "sequence repeats a question",
			mutate: func(b *Bank) {
				role := b.Roles["bartender"]
				role.Sequence = []string{"q1", "q1"}
				b.Roles["bartender"] = role
			},
			wantErr: "appears twice",
		},
		{
			name: "missing rubric tier",
			mutate: func(b *Bank) {
				role := b.Roles["bartender"]
				q := role.Questions["q1"]
				delete(q.Rubric, models.TierNoResponse)
				role.Questions["q1"] = q
				b.Roles["bartender"] = role
			},
			wantErr: "rubric missing tier",
		},
		{
			name: "pass requires too high",
			mutate: func(b *Bank) {
				role := b.Roles["bartender"]
				role.Recommendation.PassRequires = 5
				b.Roles["bartender"] = role
			},
			wantErr: "pass_requires",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := validBank()
			tt.mutate(bank)
			err := bank.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestApplyDefaults_RecommendationPolicy(t *testing.T) {
	bank := validBank()
	role := bank.Roles["bartender"]
	role.Recommendation = RecommendationPolicy{}
	role.Sequence = nil
	bank.Roles["bartender"] = role

	applyDefaults(bank)

	role = bank.Roles["bartender"]
	if role.Recommendation.PassRequires != 2 {
		t.Errorf("expected pass_requires 2, got %d", role.Recommendation.PassRequires)
	}
	if role.Recommendation.ReviewRequires != 1 {
		t.Errorf("expected review_requires 1, got %d", role.Recommendation.ReviewRequires)
	}
	if len(role.Sequence) != 2 {
		t.Errorf("expected sequence derived from categories, got %v", role.Sequence)
	}
}

func TestRecommend(t *testing.T) {
	role := validBank().Roles["bartender"]

	tests := []struct {
		passing int
		want    models.Recommendation
	}{
		{2, models.RecommendationPass},
		{1, models.RecommendationReview},
		{0, models.RecommendationFail},
	}

	for _, tt := range tests {
		if got := role.Recommend(tt.passing); got != tt.want {
			t.Errorf("Recommend(%d) = %s, want %s", tt.passing, got, tt.want)
		}
	}
}

func TestQuestionMaxScore(t *testing.T) {
	q := validBank().Roles["bartender"].Questions["q1"]
	if q.MaxScore() != 10 {
		t.Errorf("expected max score 10, got %f", q.MaxScore())
	}
	if q.TierScore(models.TierRedFlag) != 3 {
		t.Errorf("expected red_flag score 3, got %f", q.TierScore(models.TierRedFlag))
	}
}

func TestCategoryOf(t *testing.T) {
	role := validBank().Roles["bartender"]

	category, ok := role.CategoryOf("q2")
	if !ok || category.Key != "service" {
		t.Errorf("expected service category, got %+v", category)
	}
	if _, ok := role.CategoryOf("q9"); ok {
		t.Error("expected no category for unknown question")
	}
}
