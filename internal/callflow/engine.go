package callflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/innovativesol/voice-assessment/internal/config"
	"github.com/innovativesol/voice-assessment/internal/models"
	"github.com/innovativesol/voice-assessment/internal/session"
	"github.com/rs/zerolog"
)

// Enqueuer hands a completed session to the scoring pipeline.
type Enqueuer interface {
	Enqueue(ctx context.Context, job models.ScoringJob) error
}

// Caller places the outbound call for a new assessment.
type Caller interface {
	PlaceCall(ctx context.Context, phone string, assessmentID string, role string) (string, error)
}

// Engine is the call-flow state machine. Every webhook invocation fetches the
// session, applies exactly one transition, persists it, and returns the single
// next instruction for the telephony gateway. No state survives between
// invocations outside the session store.
type Engine struct {
	store  session.Store
	bank   *config.Bank
	queue  Enqueuer
	caller Caller
	logger *zerolog.Logger
}

func NewEngine(store session.Store, bank *config.Bank, queue Enqueuer, caller Caller, logger *zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		bank:   bank,
		queue:  queue,
		caller: caller,
		logger: logger,
	}
}

var phonePattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// NormalizePhone strips formatting characters and enforces E.164.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.NewReplacer("-", "", "(", "", ")", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned != "" && !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}
	if !phonePattern.MatchString(cleaned) {
		return "", fmt.Errorf("%w: phone %q is not E.164", ErrInvalidRequest, raw)
	}
	return cleaned, nil
}

// Initiate validates the request, creates the session and places the call.
func (e *Engine) Initiate(ctx context.Context, phone, roleKey, candidateID string) (string, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}

	role, ok := e.bank.Role(roleKey)
	if !ok {
		return "", fmt.Errorf("%w: unknown role %q, available: %s", ErrInvalidRequest, roleKey, strings.Join(e.bank.RoleKeys(), ", "))
	}

	now := time.Now().UTC()
	assessmentID := fmt.Sprintf("%s_%s_%s", roleKey, now.Format("20060102_150405"), uuid.NewString()[:8])

	sess := &models.CallSession{
		AssessmentID:   assessmentID,
		Role:           roleKey,
		CandidatePhone: normalized,
		CandidateID:    candidateID,
		Sequence:       append([]string(nil), role.Sequence...),
		Responses:      make(map[string]models.QuestionResponse),
		Repeats:        make(map[string]int),
		Timeouts:       make(map[string]int),
		Status:         models.StatusInProgress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	revision, err := e.store.Create(ctx, sess)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	callSID, err := e.caller.PlaceCall(ctx, normalized, assessmentID, roleKey)
	if err != nil {
		sess.Status = models.StatusFailed
		sess.UpdatedAt = time.Now().UTC()
		if _, putErr := e.store.Put(ctx, sess, revision); putErr != nil {
			e.logger.Error().Err(putErr).Str("assessment_id", assessmentID).Msg("failed to mark session failed")
		}
		return "", fmt.Errorf("place call: %w", err)
	}

	sess.CallSID = callSID
	sess.UpdatedAt = time.Now().UTC()
	if _, err := e.store.Put(ctx, sess, revision); err != nil {
		e.logger.Error().Err(err).Str("assessment_id", assessmentID).Msg("failed to record call SID")
	}

	e.logger.Info().
		Str("assessment_id", assessmentID).
		Str("role", roleKey).
		Str("call_sid", callSID).
		Msg("assessment initiated")

	return assessmentID, nil
}

// HandleEvent applies one webhook event and returns the next instruction.
// Instructions are always usable, even alongside an error, so the caller can
// end the call gracefully instead of leaving the candidate on a silent line.
func (e *Engine) HandleEvent(ctx context.Context, event models.Event) (models.Instruction, error) {
	if event.AssessmentID == "" {
		return apologize(), ErrMalformedEvent
	}

	switch event.Type {
	case models.EventAnswered:
		return e.apply(ctx, event, e.transitionAnswered)
	case models.EventRecording:
		return e.apply(ctx, event, e.transitionRecording)
	case models.EventGather:
		return e.apply(ctx, event, e.transitionGather)
	case models.EventStatus:
		return e.apply(ctx, event, e.transitionStatus)
	default:
		return apologize(), fmt.Errorf("%w: unknown event type %q", ErrMalformedEvent, event.Type)
	}
}

// transition mutates the session in place and returns the instruction plus
// whether a persist is required.
type transition func(sess *models.CallSession, event models.Event) (models.Instruction, bool, error)

// apply runs the fetch-decide-persist loop. A revision conflict means another
// delivery won the write; the transition is re-decided against the fresh state
// once, which also makes duplicate deliveries converge instead of
// double-advancing.
func (e *Engine) apply(ctx context.Context, event models.Event, fn transition) (models.Instruction, error) {
	const attempts = 2

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		sess, revision, err := e.store.Get(ctx, event.AssessmentID)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return apologize(), err
			}
			return apologize(), fmt.Errorf("load session %s: %w", event.AssessmentID, err)
		}

		wasTerminal := sess.Status.Terminal()

		instruction, changed, err := fn(sess, event)
		if err != nil {
			return instruction, err
		}
		if !changed {
			return instruction, nil
		}

		sess.UpdatedAt = time.Now().UTC()
		if _, err := e.store.Put(ctx, sess, revision); err != nil {
			if errors.Is(err, session.ErrRevisionConflict) {
				lastErr = err
				continue
			}
			return apologize(), fmt.Errorf("persist session %s: %w", event.AssessmentID, err)
		}

		if !wasTerminal && sess.Status == models.StatusCompleted {
			e.enqueueScoring(ctx, sess)
		}

		e.logger.Info().
			Str("assessment_id", sess.AssessmentID).
			Str("event", string(event.Type)).
			Str("status", string(sess.Status)).
			Int("question_index", sess.CurrentIndex).
			Str("instruction", string(instruction.Kind)).
			Msg("transition applied")

		return instruction, nil
	}

	return apologize(), fmt.Errorf("persist session %s: %w", event.AssessmentID, lastErr)
}

func (e *Engine) enqueueScoring(ctx context.Context, sess *models.CallSession) {
	job := models.ScoringJob{AssessmentID: sess.AssessmentID, Role: sess.Role}
	if err := e.queue.Enqueue(ctx, job); err != nil {
		// The goodbye must still play; reprocessing can pick this up later.
		e.logger.Error().Err(err).Str("assessment_id", sess.AssessmentID).Msg("failed to enqueue scoring job")
		return
	}
	e.logger.Info().Str("assessment_id", sess.AssessmentID).Msg("scoring job enqueued")
}

func (e *Engine) transitionAnswered(sess *models.CallSession, event models.Event) (models.Instruction, bool, error) {
	if sess.Status.Terminal() {
		return terminalInstruction(sess), false, nil
	}

	changed := false
	if event.CallSID != "" && sess.CallSID == "" {
		sess.CallSID = event.CallSID
		changed = true
	}

	// First ask plays the intro; a re-delivered answered event mid-call just
	// re-asks the current question.
	playIntro := sess.CurrentIndex == 0 && len(sess.Responses) == 0
	return ask(sess, playIntro), changed, nil
}

func (e *Engine) transitionRecording(sess *models.CallSession, event models.Event) (models.Instruction, bool, error) {
	if sess.Status.Terminal() {
		return terminalInstruction(sess), false, nil
	}
	if event.QuestionKey == "" {
		return apologize(), false, fmt.Errorf("%w: recording event without question key", ErrMalformedEvent)
	}

	current := sess.CurrentQuestion()
	if event.QuestionKey != current {
		// Duplicate or out-of-order delivery for a question already advanced
		// past. Re-issue the current instruction without touching state.
		return ask(sess, false), false, nil
	}

	policy := e.bank.Call

	if event.Digits == "*" {
		ensureCounters(sess)
		sess.Repeats[current]++
		if sess.Repeats[current] > policy.RepeatCap {
			return e.recordNoResponse(sess, current), true, nil
		}
		return ask(sess, false), true, nil
	}

	if isSilence(event, policy) {
		ensureCounters(sess)
		sess.Timeouts[current]++
		if sess.Timeouts[current] > policy.TimeoutReprompts {
			return e.recordNoResponse(sess, current), true, nil
		}
		return reprompt(sess), true, nil
	}

	ensureCounters(sess)
	if event.RecordingURL == "" {
		// Submit key pressed before anything was said.
		return e.recordNoResponse(sess, current), true, nil
	}
	sess.Responses[current] = models.QuestionResponse{
		RecordingURL: event.RecordingURL,
		RecordedAt:   time.Now().UTC(),
	}
	return e.advance(sess), true, nil
}

func (e *Engine) transitionGather(sess *models.CallSession, event models.Event) (models.Instruction, bool, error) {
	if sess.Status.Terminal() {
		return terminalInstruction(sess), false, nil
	}

	current := sess.CurrentQuestion()
	if current == "" {
		return goodbye(sess), false, nil
	}

	if event.Digits == "*" {
		ensureCounters(sess)
		sess.Repeats[current]++
		if sess.Repeats[current] > e.bank.Call.RepeatCap {
			return e.recordNoResponse(sess, current), true, nil
		}
		return ask(sess, false), true, nil
	}

	return reprompt(sess), false, nil
}

func (e *Engine) transitionStatus(sess *models.CallSession, event models.Event) (models.Instruction, bool, error) {
	switch event.CallStatus {
	case "failed", "busy", "no-answer", "canceled":
		if sess.Status.Terminal() {
			return none(), false, nil
		}
		sess.Status = models.StatusFailed
		return none(), true, nil
	case "completed":
		// Hangup. If the flow did not finish, the candidate abandoned the
		// call; partial answers stay but scoring is never triggered.
		if sess.Status.Terminal() {
			return none(), false, nil
		}
		sess.Status = models.StatusAbandoned
		return none(), true, nil
	default:
		return none(), false, nil
	}
}

// recordNoResponse marks the question unanswered and advances.
func (e *Engine) recordNoResponse(sess *models.CallSession, questionKey string) models.Instruction {
	sess.Responses[questionKey] = models.QuestionResponse{
		NoResponse: true,
		RecordedAt: time.Now().UTC(),
	}
	return e.advance(sess)
}

// advance moves the pointer forward. The pointer never decreases; reaching the
// end of the sequence completes the session.
func (e *Engine) advance(sess *models.CallSession) models.Instruction {
	sess.CurrentIndex++
	if sess.CurrentIndex >= len(sess.Sequence) {
		now := time.Now().UTC()
		sess.Status = models.StatusCompleted
		sess.CompletedAt = &now
		return goodbye(sess)
	}
	return ask(sess, false)
}

func ensureCounters(sess *models.CallSession) {
	if sess.Responses == nil {
		sess.Responses = make(map[string]models.QuestionResponse)
	}
	if sess.Repeats == nil {
		sess.Repeats = make(map[string]int)
	}
	if sess.Timeouts == nil {
		sess.Timeouts = make(map[string]int)
	}
}

func isSilence(event models.Event, policy config.CallPolicy) bool {
	if event.Digits != "" {
		return false
	}
	if event.RecordingURL == "" {
		return true
	}
	return event.RecordingDuration > 0 && event.RecordingDuration <= policy.SilenceTimeoutSeconds
}

func ask(sess *models.CallSession, playIntro bool) models.Instruction {
	return models.Instruction{
		Kind:         models.InstructionAsk,
		AssessmentID: sess.AssessmentID,
		Role:         sess.Role,
		QuestionKey:  sess.CurrentQuestion(),
		PlayIntro:    playIntro,
	}
}

func reprompt(sess *models.CallSession) models.Instruction {
	return models.Instruction{
		Kind:         models.InstructionReprompt,
		AssessmentID: sess.AssessmentID,
		Role:         sess.Role,
		QuestionKey:  sess.CurrentQuestion(),
	}
}

func goodbye(sess *models.CallSession) models.Instruction {
	return models.Instruction{
		Kind:         models.InstructionGoodbye,
		AssessmentID: sess.AssessmentID,
		Role:         sess.Role,
	}
}

func apologize() models.Instruction {
	return models.Instruction{
		Kind:    models.InstructionApologize,
		Message: "Sorry, there was an error. Please try again later.",
	}
}

func none() models.Instruction {
	return models.Instruction{Kind: models.InstructionNone}
}

func terminalInstruction(sess *models.CallSession) models.Instruction {
	if sess.Status == models.StatusCompleted {
		return goodbye(sess)
	}
	return none()
}
