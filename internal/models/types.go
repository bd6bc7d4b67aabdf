package models

import (
	"time"
)

type Recommendation string

const (
	RecommendationPass   Recommendation = "PASS"
	RecommendationReview Recommendation = "REVIEW"
	RecommendationFail   Recommendation = "FAIL"
)

type Tier string

const (
	TierIdeal           Tier = "ideal"
	TierAcceptable      Tier = "acceptable"
	TierRedFlag         Tier = "red_flag"
	TierNoResponse      Tier = "no_response"
	TierEvaluationError Tier = "evaluation_error"
)

// RubricTiers are the tiers a question's rubric defines. evaluation_error is a
// pipeline outcome, never a rubric entry.
var RubricTiers = []Tier{TierIdeal, TierAcceptable, TierRedFlag, TierNoResponse}

type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusFailed     SessionStatus = "failed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// Terminal reports whether the session can no longer transition.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusAbandoned
}

// QuestionResponse is what the call flow captured for one question.
type QuestionResponse struct {
	RecordingURL string    `json:"recording_url,omitempty"`
	Transcript   string    `json:"transcript,omitempty"`
	NoResponse   bool      `json:"no_response,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// CallSession is the durable record of one phone assessment. It is the only
// state shared between webhook invocations; every handler reads it from the
// session store, applies one transition and writes it back.
type CallSession struct {
	AssessmentID   string                      `json:"assessment_id"`
	Role           string                      `json:"role"`
	CandidatePhone string                      `json:"candidate_phone"`
	CandidateID    string                      `json:"candidate_id,omitempty"`
	CallSID        string                      `json:"call_sid,omitempty"`
	Sequence       []string                    `json:"sequence"`
	CurrentIndex   int                         `json:"current_question_index"`
	Responses      map[string]QuestionResponse `json:"responses"`
	Repeats        map[string]int              `json:"repeats,omitempty"`
	Timeouts       map[string]int              `json:"timeouts,omitempty"`
	Status         SessionStatus               `json:"status"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	CompletedAt    *time.Time                  `json:"completed_at,omitempty"`
}

// CurrentQuestion returns the question key at the pointer, or "" when the
// sequence is exhausted.
func (s *CallSession) CurrentQuestion() string {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Sequence) {
		return ""
	}
	return s.Sequence[s.CurrentIndex]
}

// Answered reports whether every question has a transcript-bearing recording
// or an explicit no-response marker.
func (s *CallSession) Answered() bool {
	for _, key := range s.Sequence {
		r, ok := s.Responses[key]
		if !ok {
			return false
		}
		if r.RecordingURL == "" && !r.NoResponse {
			return false
		}
	}
	return true
}

// ScoredAnswer is the evaluation of one transcript against its rubric.
type ScoredAnswer struct {
	QuestionKey string  `json:"question_key"`
	Tier        Tier    `json:"tier"`
	Score       float64 `json:"score"`
	Reasoning   string  `json:"reasoning"`
}

// CategoryResult aggregates the scored answers of one rubric category.
type CategoryResult struct {
	CategoryKey  string         `json:"category_key"`
	Name         string         `json:"name"`
	AverageScore float64        `json:"average_score"`
	Percentage   float64        `json:"percentage"`
	Threshold    float64        `json:"threshold"`
	Passed       bool           `json:"passed"`
	Degraded     bool           `json:"degraded,omitempty"`
	Answers      []ScoredAnswer `json:"answers"`
}

// AssessmentResult is the final output for one session.
type AssessmentResult struct {
	AssessmentID   string            `json:"assessment_id"`
	Role           string            `json:"role"`
	Recommendation Recommendation    `json:"recommendation"`
	Reasoning      string            `json:"reasoning"`
	Categories     []CategoryResult  `json:"categories"`
	Transcripts    map[string]string `json:"transcripts"`
	AnalyzedAt     time.Time         `json:"analyzed_at"`
}

// IndexEntry is the summary record kept in the global index so the dashboard
// can discover assessments without listing storage.
type IndexEntry struct {
	AssessmentID string    `json:"id"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
	ResultKey    string    `json:"result_key,omitempty"`
}

// Index is the full index document, replaced atomically on every publish.
type Index struct {
	Assessments []IndexEntry `json:"assessments"`
	LastUpdated time.Time    `json:"last_updated"`
	TotalCount  int          `json:"total_count"`
}

// ScoringJob is the message enqueued when a call completes.
type ScoringJob struct {
	AssessmentID string `json:"assessment_id"`
	Role         string `json:"role"`
}
