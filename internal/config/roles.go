package config

import (
	"fmt"
	"os"

	"github.com/innovativesol/voice-assessment/internal/models"
	"gopkg.in/yaml.v3"
)

// LoadBank reads the question bank from path, applies defaults and validates
// it. A malformed role definition fails here, at startup, rather than
// producing a meaningless result mid-assessment.
func LoadBank(path string) (*Bank, error) {
	if path == "" {
		path = "configs/roles.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var bank Bank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, err
	}

	applyDefaults(&bank)

	if err := bank.Validate(); err != nil {
		return nil, err
	}

	return &bank, nil
}

func applyDefaults(bank *Bank) {
	if bank.Call.RepeatCap == 0 {
		bank.Call.RepeatCap = 3
	}
	if bank.Call.TimeoutReprompts == 0 {
		bank.Call.TimeoutReprompts = 1
	}
	if bank.Call.SilenceTimeoutSeconds == 0 {
		bank.Call.SilenceTimeoutSeconds = 5
	}
	if bank.Call.RepromptWindowSeconds == 0 {
		bank.Call.RepromptWindowSeconds = 120
	}
	if bank.Call.MaxRecordingSeconds == 0 {
		bank.Call.MaxRecordingSeconds = 120
	}

	for key, role := range bank.Roles {
		role.Key = key
		if role.Recommendation.PassRequires == 0 {
			role.Recommendation.PassRequires = len(role.Categories)
		}
		if role.Recommendation.ReviewRequires == 0 {
			review := len(role.Categories) - 1
			if review < 1 {
				review = 1
			}
			role.Recommendation.ReviewRequires = review
		}
		if len(role.Sequence) == 0 {
			for _, c := range role.Categories {
				role.Sequence = append(role.Sequence, c.Questions...)
			}
		}
		bank.Roles[key] = role
	}
}

// Validate enforces the closed-structure rules: every category has at least
// one question, every question belongs to exactly one category, the sequence
// covers every question exactly once, and every rubric defines all four tiers.
func (b *Bank) Validate() error {
	if len(b.Roles) == 0 {
		return fmt.Errorf("no roles defined")
	}

	for key, role := range b.Roles {
		if role.Name == "" {
			return fmt.Errorf("role %s: missing name", key)
		}
		if len(role.Categories) == 0 {
			return fmt.Errorf("role %s: no categories defined", key)
		}

		owned := make(map[string]string)
		for _, cat := range role.Categories {
			if cat.Key == "" || cat.Name == "" {
				return fmt.Errorf("role %s: category missing key or name", key)
			}
			if cat.Threshold <= 0 || cat.Threshold > 100 {
				return fmt.Errorf("role %s: category %s threshold %.1f out of (0, 100]", key, cat.Key, cat.Threshold)
			}
			if len(cat.Questions) == 0 {
				return fmt.Errorf("role %s: category %s has no questions", key, cat.Key)
			}
			for _, q := range cat.Questions {
				if prev, dup := owned[q]; dup {
					return fmt.Errorf("role %s: question %s assigned to both %s and %s", key, q, prev, cat.Key)
				}
				owned[q] = cat.Key
				if _, ok := role.Questions[q]; !ok {
					return fmt.Errorf("role %s: category %s references undefined question %s", key, cat.Key, q)
				}
			}
		}

		for q, question := range role.Questions {
			if _, ok := owned[q]; !ok {
				return fmt.Errorf("role %s: question %s belongs to no category", key, q)
			}
			if question.Prompt == "" {
				return fmt.Errorf("role %s: question %s missing prompt", key, q)
			}
			for _, tier := range models.RubricTiers {
				if _, ok := question.Rubric[tier]; !ok {
					return fmt.Errorf("role %s: question %s rubric missing tier %s", key, q, tier)
				}
			}
			if question.MaxScore() <= 0 {
				return fmt.Errorf("role %s: question %s has no positive rubric score", key, q)
			}
		}

		if len(role.Sequence) != len(role.Questions) {
			return fmt.Errorf("role %s: sequence lists %d questions, role defines %d", key, len(role.Sequence), len(role.Questions))
		}
		seen := make(map[string]bool)
		for _, q := range role.Sequence {
			if seen[q] {
				return fmt.Errorf("role %s: question %s appears twice in sequence", key, q)
			}
			seen[q] = true
			if _, ok := role.Questions[q]; !ok {
				return fmt.Errorf("role %s: sequence references undefined question %s", key, q)
			}
		}

		if role.Recommendation.PassRequires > len(role.Categories) {
			return fmt.Errorf("role %s: pass_requires %d exceeds category count %d", key, role.Recommendation.PassRequires, len(role.Categories))
		}
		if role.Recommendation.ReviewRequires > role.Recommendation.PassRequires {
			return fmt.Errorf("role %s: review_requires %d exceeds pass_requires %d", key, role.Recommendation.ReviewRequires, role.Recommendation.PassRequires)
		}
	}

	return nil
}

// Role looks up a role definition by key.
func (b *Bank) Role(key string) (Role, bool) {
	role, ok := b.Roles[key]
	return role, ok
}

// RoleKeys lists the configured role keys, for validation error messages.
func (b *Bank) RoleKeys() []string {
	keys := make([]string, 0, len(b.Roles))
	for k := range b.Roles {
		keys = append(keys, k)
	}
	return keys
}
