// internal/httpapi/handlers.go
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/aiparse"
	"github.com/meditrek/clinpilot/internal/clinical"
	"github.com/meditrek/clinpilot/internal/store"
)

// The handler interfaces mirror the concrete engines in internal/clinical.
// Handlers depend on these so tests can substitute fakes without a router.

type DiagnosisGenerator interface {
	Generate(ctx context.Context, cc schemas.ClinicalContext) (*schemas.DiagnosisReport, error)
}

type TreatmentGenerator interface {
	Generate(ctx context.Context, cc schemas.ClinicalContext, diagnosis string) (*schemas.TreatmentPlan, error)
}

type InteractionChecker interface {
	CheckRegimen(ctx context.Context, medications, allergies []string) (*schemas.InteractionReport, error)
}

type LabAnalyzer interface {
	Analyze(ctx context.Context, cc schemas.ClinicalContext) (*schemas.LabReport, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, cc schemas.ClinicalContext) (*schemas.PatientSummary, error)
}

// errorBody is the uniform JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// mapError converts domain errors to HTTP responses. Provider chain
// exhaustion is a gateway problem (503), a provider returning garbage is a
// bad upstream (502), everything the caller got wrong is 400.
func mapError(c echo.Context, err error) error {
	var unavailable *clinical.AnalysisUnavailableError
	if errors.As(err, &unavailable) {
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	}
	var malformed *aiparse.MalformedResponseError
	if errors.As(err, &malformed) {
		return c.JSON(http.StatusBadGateway, errorBody{Error: err.Error()})
	}
	if errors.Is(err, store.ErrPatientNotFound) {
		return c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
}

// DiagnosisHandler serves POST /api/v1/analyze/diagnosis. The request body is
// the clinical context itself.
type DiagnosisHandler struct {
	engine DiagnosisGenerator
}

func (h *DiagnosisHandler) Handle(c echo.Context) error {
	var cc schemas.ClinicalContext
	if err := c.Bind(&cc); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid clinical context: " + err.Error()})
	}
	if len(cc.ChiefComplaints) == 0 {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "at least one chief complaint is required"})
	}

	report, err := h.engine.Generate(c.Request().Context(), cc)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// treatmentRequest is the body of POST /api/v1/analyze/treatment.
type treatmentRequest struct {
	Context   schemas.ClinicalContext `json:"context"`
	Diagnosis string                  `json:"diagnosis"`
}

// TreatmentHandler serves POST /api/v1/analyze/treatment.
type TreatmentHandler struct {
	engine TreatmentGenerator
}

func (h *TreatmentHandler) Handle(c echo.Context) error {
	var req treatmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid treatment request: " + err.Error()})
	}
	if strings.TrimSpace(req.Diagnosis) == "" {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "a confirmed diagnosis is required"})
	}

	plan, err := h.engine.Generate(c.Request().Context(), req.Context, req.Diagnosis)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

// interactionRequest is the body of POST /api/v1/analyze/drug-interactions.
type interactionRequest struct {
	Medications []string `json:"medications"`
	Allergies   []string `json:"allergies,omitempty"`
}

// InteractionHandler serves POST /api/v1/analyze/drug-interactions.
type InteractionHandler struct {
	checker InteractionChecker
}

func (h *InteractionHandler) Handle(c echo.Context) error {
	var req interactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid interaction request: " + err.Error()})
	}
	if len(req.Medications) < 2 {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "at least two medications are required"})
	}

	report, err := h.checker.CheckRegimen(c.Request().Context(), req.Medications, req.Allergies)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// LabHandler serves POST /api/v1/analyze/labs. The request body is the
// clinical context; only LabResults is consulted.
type LabHandler struct {
	analyzer LabAnalyzer
}

func (h *LabHandler) Handle(c echo.Context) error {
	var cc schemas.ClinicalContext
	if err := c.Bind(&cc); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid clinical context: " + err.Error()})
	}
	if len(cc.LabResults) == 0 {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "lab results are required"})
	}

	report, err := h.analyzer.Analyze(c.Request().Context(), cc)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// SummaryHandler serves POST /api/v1/analyze/summary.
type SummaryHandler struct {
	summarizer Summarizer
}

func (h *SummaryHandler) Handle(c echo.Context) error {
	var cc schemas.ClinicalContext
	if err := c.Bind(&cc); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid clinical context: " + err.Error()})
	}

	summary, err := h.summarizer.Summarize(c.Request().Context(), cc)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}
