package models

type EventType string

const (
	EventAnswered  EventType = "answered"
	EventRecording EventType = "recording"
	EventGather    EventType = "gather"
	EventStatus    EventType = "status"
)

// Event is a normalized telephony webhook callback. AssessmentID is carried in
// the webhook URL, the rest comes from the provider's form payload.
type Event struct {
	Type              EventType `json:"type"`
	AssessmentID      string    `json:"assessment_id"`
	CallSID           string    `json:"call_sid,omitempty"`
	QuestionKey       string    `json:"question_key,omitempty"`
	Digits            string    `json:"digits,omitempty"`
	RecordingURL      string    `json:"recording_url,omitempty"`
	RecordingDuration int       `json:"recording_duration,omitempty"`
	CallStatus        string    `json:"call_status,omitempty"`
}

type InstructionKind string

const (
	// InstructionAsk plays a question prompt and opens a recording window.
	InstructionAsk InstructionKind = "ask"
	// InstructionReprompt replays the answering instructions after silence and
	// reopens recording with the extended window.
	InstructionReprompt InstructionKind = "reprompt"
	// InstructionGoodbye plays the closing prompt and hangs up.
	InstructionGoodbye InstructionKind = "goodbye"
	// InstructionApologize says a short apology and hangs up.
	InstructionApologize InstructionKind = "apologize"
	// InstructionNone acknowledges the event with an empty response.
	InstructionNone InstructionKind = "none"
)

// Instruction is the single next step the state machine hands back to the
// telephony gateway for rendering.
type Instruction struct {
	Kind         InstructionKind `json:"kind"`
	AssessmentID string          `json:"assessment_id,omitempty"`
	Role         string          `json:"role,omitempty"`
	QuestionKey  string          `json:"question_key,omitempty"`
	PlayIntro    bool            `json:"play_intro,omitempty"`
	Message      string          `json:"message,omitempty"`
}
