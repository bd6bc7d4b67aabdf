package telephony

import (
	"fmt"
	"strconv"

	"github.com/innovativesol/voice-assessment/internal/models"
	"github.com/twilio/twilio-go/twiml"
)

const (
	// Candidates press # to submit an answer or * to hear the question again.
	recordFinishKeys = "#*"

	introAudio        = "intro"
	instructionsAudio = "instructions"
	goodbyeAudio      = "goodbye"
)

// Render turns an instruction into the TwiML document returned to the
// provider. Unknown instruction kinds render as an empty response so the
// provider never receives invalid XML.
func (g *Gateway) Render(instruction models.Instruction) (string, error) {
	switch instruction.Kind {
	case models.InstructionAsk:
		return g.renderAsk(instruction)
	case models.InstructionReprompt:
		return g.renderReprompt(instruction)
	case models.InstructionGoodbye:
		return twiml.Voice([]twiml.Element{
			twiml.VoicePlay{Url: g.sharedAudioURL(goodbyeAudio)},
			twiml.VoiceHangup{},
		})
	case models.InstructionApologize:
		return twiml.Voice([]twiml.Element{
			twiml.VoiceSay{Message: instruction.Message},
			twiml.VoiceHangup{},
		})
	default:
		return twiml.Voice(nil)
	}
}

// renderAsk plays the question prompt and opens a recording window. If the
// recording never materializes the trailing redirect lands on the gather
// endpoint, which replays the answering instructions.
func (g *Gateway) renderAsk(instruction models.Instruction) (string, error) {
	audioKey, err := g.audioKey(instruction.Role, instruction.QuestionKey)
	if err != nil {
		return "", err
	}

	var verbs []twiml.Element
	if instruction.PlayIntro {
		verbs = append(verbs,
			twiml.VoicePlay{Url: g.sharedAudioURL(introAudio)},
			twiml.VoicePause{Length: "1"},
		)
	}

	verbs = append(verbs,
		twiml.VoicePlay{Url: g.questionAudioURL(instruction.Role, audioKey)},
		g.record(instruction, g.silenceSecs),
		twiml.VoiceRedirect{
			Url:    g.webhookURL("/twilio/gather", instruction.AssessmentID, instruction.QuestionKey),
			Method: "POST",
		},
	)

	return twiml.Voice(verbs)
}

// renderReprompt replays the answering instructions after silence and reopens
// recording with the extended window.
func (g *Gateway) renderReprompt(instruction models.Instruction) (string, error) {
	verbs := []twiml.Element{
		twiml.VoicePlay{Url: g.sharedAudioURL(instructionsAudio)},
		g.record(instruction, g.repromptSecs),
		twiml.VoiceRedirect{
			Url:    g.webhookURL("/twilio/gather", instruction.AssessmentID, instruction.QuestionKey),
			Method: "POST",
		},
	}
	return twiml.Voice(verbs)
}

func (g *Gateway) record(instruction models.Instruction, timeoutSecs int) twiml.VoiceRecord {
	return twiml.VoiceRecord{
		Action:      g.webhookURL("/twilio/recording", instruction.AssessmentID, instruction.QuestionKey),
		Method:      "POST",
		Timeout:     strconv.Itoa(timeoutSecs),
		MaxLength:   strconv.Itoa(g.maxRecording),
		FinishOnKey: recordFinishKeys,
		PlayBeep:    "true",
		Transcribe:  "false",
	}
}

func (g *Gateway) audioKey(roleKey, questionKey string) (string, error) {
	role, ok := g.bank.Role(roleKey)
	if !ok {
		return "", fmt.Errorf("unknown role %q", roleKey)
	}
	question, ok := role.Questions[questionKey]
	if !ok {
		return "", fmt.Errorf("role %q has no question %q", roleKey, questionKey)
	}
	if question.Audio != "" {
		return question.Audio, nil
	}
	return questionKey, nil
}
