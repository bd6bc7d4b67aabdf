package api

import (
	"errors"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/innovativesol/voice-assessment/internal/api/middleware"
	"github.com/innovativesol/voice-assessment/internal/callflow"
	"github.com/innovativesol/voice-assessment/internal/publisher"
	"github.com/rs/zerolog"
)

type Handler struct {
	engine  *callflow.Engine
	results *publisher.Publisher
	version string
	logger  *zerolog.Logger
}

func NewHandler(engine *callflow.Engine, results *publisher.Publisher, version string, logger *zerolog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		results: results,
		version: version,
		logger:  logger,
	}
}

type InitiateRequest struct {
	Phone       string `json:"phone"`
	Role        string `json:"role"`
	CandidateID string `json:"candidate_id,omitempty"`
}

type InitiateResponse struct {
	AssessmentID string `json:"assessment_id"`
	Status       string `json:"status"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// POST /api/v1/assessments/initiate
func (h *Handler) Initiate(req *restful.Request, resp *restful.Response) {
	var initiateRequest InitiateRequest
	if err := req.ReadEntity(&initiateRequest); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Str("role", initiateRequest.Role).
		Msg("Start assessment initiation")

	ctx := req.Request.Context()
	assessmentID, err := h.engine.Initiate(ctx, initiateRequest.Phone, initiateRequest.Role, initiateRequest.CandidateID)
	if err != nil {
		if errors.Is(err, callflow.ErrInvalidRequest) {
			middleware.HandleError(resp, err, http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Msg("Assessment initiation failed")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, InitiateResponse{
		AssessmentID: assessmentID,
		Status:       "initiated",
	})
}

// GET /api/v1/assessments
func (h *Handler) ListAssessments(req *restful.Request, resp *restful.Response) {
	index, _, err := h.results.LoadIndex(req.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load assessment index")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, index)
}

// GET /api/v1/assessments/{assessment_id}
func (h *Handler) GetAssessment(req *restful.Request, resp *restful.Response) {
	assessmentID := req.PathParameter("assessment_id")

	result, err := h.results.LoadResult(req.Request.Context(), assessmentID)
	if err != nil {
		if errors.Is(err, publisher.ErrResultNotFound) {
			middleware.HandleError(resp, err, http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("assessment_id", assessmentID).Msg("Failed to load result")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, result)
}

// GET /api/v1/health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}
