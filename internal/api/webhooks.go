package api

import (
	"errors"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/innovativesol/voice-assessment/internal/callflow"
	"github.com/innovativesol/voice-assessment/internal/models"
	"github.com/innovativesol/voice-assessment/internal/session"
	"github.com/innovativesol/voice-assessment/internal/telephony"
	"github.com/rs/zerolog"
)

// WebhookHandler serves the telephony provider callbacks. Every response is a
// TwiML document; the candidate is on a live call, so even a broken session
// gets a spoken apology instead of dead air.
type WebhookHandler struct {
	engine  *callflow.Engine
	gateway *telephony.Gateway
	logger  *zerolog.Logger
}

func NewWebhookHandler(engine *callflow.Engine, gateway *telephony.Gateway, logger *zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		engine:  engine,
		gateway: gateway,
		logger:  logger,
	}
}

// POST /twilio/voice
func (h *WebhookHandler) Voice(req *restful.Request, resp *restful.Response) {
	h.handle(req, resp, models.EventAnswered)
}

// POST /twilio/recording
func (h *WebhookHandler) Recording(req *restful.Request, resp *restful.Response) {
	h.handle(req, resp, models.EventRecording)
}

// POST /twilio/gather
func (h *WebhookHandler) Gather(req *restful.Request, resp *restful.Response) {
	h.handle(req, resp, models.EventGather)
}

// POST /twilio/status
func (h *WebhookHandler) Status(req *restful.Request, resp *restful.Response) {
	h.handle(req, resp, models.EventStatus)
}

func (h *WebhookHandler) handle(req *restful.Request, resp *restful.Response, eventType models.EventType) {
	event, err := telephony.ParseEvent(req.Request, eventType)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(eventType)).Msg("unparseable webhook payload")
		h.writeTwiML(resp, h.apologyTwiML())
		return
	}

	instruction, err := h.engine.HandleEvent(req.Request.Context(), event)
	if err != nil {
		switch {
		case errors.Is(err, callflow.ErrMalformedEvent), errors.Is(err, session.ErrNotFound):
			// Nothing to recover; end the call politely.
			h.logger.Warn().Err(err).Str("assessment_id", event.AssessmentID).Msg("webhook for unusable session")
		default:
			// Persistence failures are worth a retry from the provider side.
			h.logger.Error().Err(err).Str("assessment_id", event.AssessmentID).Msg("webhook handling failed")
			resp.WriteHeader(http.StatusInternalServerError)
			return
		}
	}

	document, err := h.gateway.Render(instruction)
	if err != nil {
		h.logger.Error().Err(err).Str("assessment_id", event.AssessmentID).Msg("failed to render instruction")
		document = h.apologyTwiML()
	}

	h.writeTwiML(resp, document)
}

func (h *WebhookHandler) writeTwiML(resp *restful.Response, document string) {
	resp.Header().Set("Content-Type", "application/xml")
	resp.WriteHeader(http.StatusOK)
	if _, err := resp.Write([]byte(document)); err != nil {
		h.logger.Error().Err(err).Msg("failed to write TwiML response")
	}
}

// apologyTwiML renders the fallback document. The apologize instruction only
// contains a say and a hangup, so rendering it cannot fail.
func (h *WebhookHandler) apologyTwiML() string {
	document, err := h.gateway.Render(models.Instruction{
		Kind:    models.InstructionApologize,
		Message: "Sorry, there was an error. Please try again later.",
	})
	if err != nil {
		return `<?xml version="1.0" encoding="UTF-8"?><Response><Hangup/></Response>`
	}
	return document
}
