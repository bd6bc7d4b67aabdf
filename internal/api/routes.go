package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/innovativesol/voice-assessment/internal/api/middleware"
	"github.com/innovativesol/voice-assessment/internal/models"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	// Health endpoint
	ws.
		Route(ws.GET("health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.POST("/assessments/initiate").
			To(handler.Initiate).
			Doc("Start an outbound phone assessment").
			Metadata(restfulspec.KeyOpenAPITags, []string{"assessments"}).
			Reads(InitiateRequest{}).
			Writes(InitiateResponse{}).
			Returns(200, "OK", InitiateResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/assessments").
			To(handler.ListAssessments).
			Doc("List analyzed assessments").
			Metadata(restfulspec.KeyOpenAPITags, []string{"assessments"}).
			Writes(models.Index{}).
			Returns(200, "OK", models.Index{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/assessments/{assessment_id}").
			To(handler.GetAssessment).
			Doc("Fetch one assessment result").
			Metadata(restfulspec.KeyOpenAPITags, []string{"assessments"}).
			Param(ws.PathParameter("assessment_id", "Assessment identifier").DataType("string")).
			Writes(models.AssessmentResult{}).
			Returns(200, "OK", models.AssessmentResult{}).
			Returns(404, "Not Found", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{}))

	container.Add(ws)
}

// RegisterWebhookRoutes mounts the telephony callbacks. They consume form
// payloads and answer with TwiML, so they live outside the JSON web service.
func RegisterWebhookRoutes(container *restful.Container, handler *WebhookHandler) {
	ws := new(restful.WebService)

	ws.
		Path("/twilio").
		Consumes("application/x-www-form-urlencoded").
		Produces("application/xml")

	ws.Route(ws.POST("/voice").
		To(handler.Voice).
		Doc("Call answered callback").
		Metadata(restfulspec.KeyOpenAPITags, []string{"webhooks"}))

	ws.Route(ws.POST("/recording").
		To(handler.Recording).
		Doc("Recording completed callback").
		Metadata(restfulspec.KeyOpenAPITags, []string{"webhooks"}))

	ws.Route(ws.POST("/gather").
		To(handler.Gather).
		Doc("Keypress and fallthrough callback").
		Metadata(restfulspec.KeyOpenAPITags, []string{"webhooks"}))

	ws.Route(ws.POST("/status").
		To(handler.Status).
		Doc("Call status callback").
		Metadata(restfulspec.KeyOpenAPITags, []string{"webhooks"}))

	container.Add(ws)
}
