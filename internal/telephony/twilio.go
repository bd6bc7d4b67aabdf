package telephony

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/innovativesol/voice-assessment/internal/config"
	"github.com/innovativesol/voice-assessment/internal/models"
	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Gateway wraps the Twilio provider: it places outbound calls, parses inbound
// webhook payloads into events, and renders instructions as TwiML.
type Gateway struct {
	client       *twilio.RestClient
	bank         *config.Bank
	fromNumber   string
	webhookBase  string
	audioBase    string
	silenceSecs  int
	repromptSecs int
	maxRecording int
	logger       *zerolog.Logger
}

type GatewayConfig struct {
	AccountSID          string
	AuthToken           string
	FromNumber          string
	WebhookBaseURL      string
	AudioBaseURL        string
	SilenceTimeoutSecs  int
	RepromptWindowSecs  int
	MaxRecordingSeconds int
}

func NewGateway(cfg GatewayConfig, bank *config.Bank, logger *zerolog.Logger) (*Gateway, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twilio credentials not configured")
	}
	if cfg.WebhookBaseURL == "" {
		return nil, fmt.Errorf("webhook base URL not configured")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &Gateway{
		client:       client,
		bank:         bank,
		fromNumber:   cfg.FromNumber,
		webhookBase:  cfg.WebhookBaseURL,
		audioBase:    cfg.AudioBaseURL,
		silenceSecs:  cfg.SilenceTimeoutSecs,
		repromptSecs: cfg.RepromptWindowSecs,
		maxRecording: cfg.MaxRecordingSeconds,
		logger:       logger,
	}, nil
}

// PlaceCall starts the outbound call. The voice webhook URL carries the
// assessment id so every later callback can resolve its session.
func (g *Gateway) PlaceCall(ctx context.Context, phone string, assessmentID string, role string) (string, error) {
	voiceURL := g.webhookURL("/twilio/voice", assessmentID, "")
	statusURL := g.webhookURL("/twilio/status", assessmentID, "")

	params := &openapi.CreateCallParams{}
	params.SetTo(phone)
	params.SetFrom(g.fromNumber)
	params.SetUrl(voiceURL)
	params.SetMethod("POST")
	params.SetStatusCallback(statusURL)
	params.SetStatusCallbackEvent([]string{"completed", "failed", "busy", "no-answer", "canceled"})

	call, err := g.client.Api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("create call: %w", err)
	}

	sid := ""
	if call.Sid != nil {
		sid = *call.Sid
	}
	g.logger.Info().Str("assessment_id", assessmentID).Str("call_sid", sid).Msg("outbound call created")
	return sid, nil
}

// ParseEvent normalizes an inbound webhook request. The assessment id and
// question key ride in the query string; the rest is provider form data.
func ParseEvent(r *http.Request, eventType models.EventType) (models.Event, error) {
	if err := r.ParseForm(); err != nil {
		return models.Event{}, fmt.Errorf("parse webhook form: %w", err)
	}

	duration := 0
	if raw := r.FormValue("RecordingDuration"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return models.Event{}, fmt.Errorf("parse recording duration %q: %w", raw, err)
		}
		duration = parsed
	}

	return models.Event{
		Type:              eventType,
		AssessmentID:      r.URL.Query().Get("assessment_id"),
		QuestionKey:       r.URL.Query().Get("question"),
		CallSID:           r.FormValue("CallSid"),
		Digits:            r.FormValue("Digits"),
		RecordingURL:      r.FormValue("RecordingUrl"),
		RecordingDuration: duration,
		CallStatus:        r.FormValue("CallStatus"),
	}, nil
}

func (g *Gateway) webhookURL(path, assessmentID, questionKey string) string {
	values := url.Values{}
	values.Set("assessment_id", assessmentID)
	if questionKey != "" {
		values.Set("question", questionKey)
	}
	return g.webhookBase + path + "?" + values.Encode()
}

func (g *Gateway) questionAudioURL(role, audioKey string) string {
	return fmt.Sprintf("%s/audio/%s/%s.mp3", g.audioBase, role, audioKey)
}

func (g *Gateway) sharedAudioURL(name string) string {
	return fmt.Sprintf("%s/audio/%s.mp3", g.audioBase, name)
}
