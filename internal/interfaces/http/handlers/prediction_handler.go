package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/alchemist/internal/application/transmuter"
)

// PredictionHandler serves predictions, the text pipeline and history.
type PredictionHandler struct {
	svc        transmuter.Service
	classifier *transmuter.Classifier
}

// NewPredictionHandler creates a PredictionHandler.
func NewPredictionHandler(svc transmuter.Service, classifier *transmuter.Classifier) *PredictionHandler {
	return &PredictionHandler{svc: svc, classifier: classifier}
}

// TextRequest carries free text.
type TextRequest struct {
	Text string `json:"text" binding:"required"`
}

// Predict handles POST /api/v1/reactions/predict.
func (h *PredictionHandler) Predict(c *gin.Context) {
	var req transmuter.PredictRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Predict(c.Request.Context(), &req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Transmute handles POST /api/v1/transmute.
func (h *PredictionHandler) Transmute(c *gin.Context) {
	var req TextRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Transmute(c.Request.Context(), req.Text)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Classify handles POST /api/v1/classify.
func (h *PredictionHandler) Classify(c *gin.Context) {
	var req TextRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.classifier.Classify(req.Text))
}

// Submit handles POST /api/v1/predictions and answers 202 with the pending
// record.
func (h *PredictionHandler) Submit(c *gin.Context) {
	var req transmuter.PredictRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := h.svc.Submit(c.Request.Context(), &req)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.Header("Location", "/api/v1/predictions/"+rec.ID.String())
	c.JSON(http.StatusAccepted, rec)
}

// List handles GET /api/v1/predictions.
func (h *PredictionHandler) List(c *gin.Context) {
	limit, offset := parsePagination(c)
	res, err := h.svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Get handles GET /api/v1/predictions/:id.
func (h *PredictionHandler) Get(c *gin.Context) {
	rec, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
