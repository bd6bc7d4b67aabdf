package config

import (
	"github.com/innovativesol/voice-assessment/internal/models"
)

// Bank is the complete question bank: call policy plus every role definition.
type Bank struct {
	Call  CallPolicy      `yaml:"call"`
	Roles map[string]Role `yaml:"roles"`
}

// CallPolicy bounds the live-call behavior of the state machine.
type CallPolicy struct {
	RepeatCap             int `yaml:"repeat_cap"`
	TimeoutReprompts      int `yaml:"timeout_reprompts"`
	SilenceTimeoutSeconds int `yaml:"silence_timeout_seconds"`
	RepromptWindowSeconds int `yaml:"reprompt_window_seconds"`
	MaxRecordingSeconds   int `yaml:"max_recording_seconds"`
}

// Role is one job type's immutable assessment definition.
type Role struct {
	Key            string               `yaml:"-"`
	Name           string               `yaml:"name"`
	Sequence       []string             `yaml:"sequence"`
	Categories     []Category           `yaml:"categories"`
	Questions      map[string]Question  `yaml:"questions"`
	Recommendation RecommendationPolicy `yaml:"recommendation"`
}

// Category groups questions and carries its own pass threshold, expressed as a
// percentage of the category's maximum score.
type Category struct {
	Key       string   `yaml:"key"`
	Name      string   `yaml:"name"`
	Threshold float64  `yaml:"threshold"`
	Questions []string `yaml:"questions"`
}

// Question owns a stable key, a prompt and a four-tier rubric.
type Question struct {
	Prompt string                     `yaml:"prompt"`
	Audio  string                     `yaml:"audio"`
	Rubric map[models.Tier]RubricTier `yaml:"rubric"`
}

// RubricTier is one scoring tier of a question.
type RubricTier struct {
	Score       float64 `yaml:"score"`
	Description string  `yaml:"description"`
}

// RecommendationPolicy maps the count of passing categories to an overall
// recommendation. PassRequires passing categories give PASS, ReviewRequires
// give REVIEW, anything below gives FAIL.
type RecommendationPolicy struct {
	PassRequires   int `yaml:"pass_requires"`
	ReviewRequires int `yaml:"review_requires"`
}

// MaxScore returns the highest rubric score of the question, the denominator
// for category percentages.
func (q Question) MaxScore() float64 {
	max := 0.0
	for _, tier := range q.Rubric {
		if tier.Score > max {
			max = tier.Score
		}
	}
	return max
}

// TierScore returns the configured score for a rubric tier.
func (q Question) TierScore(tier models.Tier) float64 {
	return q.Rubric[tier].Score
}

// CategoryOf returns the category owning the question key.
func (r Role) CategoryOf(questionKey string) (Category, bool) {
	for _, c := range r.Categories {
		for _, q := range c.Questions {
			if q == questionKey {
				return c, true
			}
		}
	}
	return Category{}, false
}

// Recommend applies the role's policy to the number of passing categories.
func (r Role) Recommend(passing int) models.Recommendation {
	switch {
	case passing >= r.Recommendation.PassRequires:
		return models.RecommendationPass
	case passing >= r.Recommendation.ReviewRequires:
		return models.RecommendationReview
	default:
		return models.RecommendationFail
	}
}
