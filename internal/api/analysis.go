package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/MikeSquared-Agency/Decision/internal/broker"
	"github.com/MikeSquared-Agency/Decision/internal/config"
	"github.com/MikeSquared-Agency/Decision/internal/metrics"
	"github.com/MikeSquared-Agency/Decision/internal/scoring"
)

const maxBodyBytes = 4 << 20

// AnalysisHandler serves stateless analyses. Nothing is persisted.
type AnalysisHandler struct {
	broker *broker.Broker
	cfg    *config.Config
}

func NewAnalysisHandler(b *broker.Broker, cfg *config.Config) *AnalysisHandler {
	return &AnalysisHandler{broker: b, cfg: cfg}
}

type AnalyzeRequest struct {
	Problem *scoring.Problem `json:"problem"`
	Method  string           `json:"method"`
	Options *scoring.Options `json:"options,omitempty"`
}

type SensitivityRequest struct {
	Problem        *scoring.Problem `json:"problem"`
	Method         string           `json:"method"`
	CriterionIndex *int             `json:"criterion_index"`
	SampleCount    int              `json:"sample_count,omitempty"`
	Options        *scoring.Options `json:"options,omitempty"`
}

func (h *AnalysisHandler) Methods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scoring.Methods())
}

// Validate accepts a problem as JSON or, with a YAML content type, as YAML.
func (h *AnalysisHandler) Validate(w http.ResponseWriter, r *http.Request) {
	p, err := decodeProblem(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := scoring.Validate(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Problem == nil {
		writeError(w, missingProblem())
		return
	}
	method, err := scoring.ParseMethod(firstNonEmpty(r.URL.Query().Get("method"), req.Method))
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.broker.Analyze(r.Context(), req.Problem, method, h.options(req.Options))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AnalysisHandler) Sensitivity(w http.ResponseWriter, r *http.Request) {
	var req SensitivityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Problem == nil {
		writeError(w, missingProblem())
		return
	}
	method, err := scoring.ParseMethod(firstNonEmpty(r.URL.Query().Get("method"), req.Method))
	if err != nil {
		writeError(w, err)
		return
	}
	if req.CriterionIndex == nil {
		writeError(w, &scoring.ProblemError{
			Kind:   scoring.KindInvalidSensitivityCriterion,
			Entity: "criterion_index",
			Detail: "criterion_index is required",
		})
		return
	}
	samples := req.SampleCount
	if samples == 0 {
		samples = h.cfg.Analysis.SampleCount
	}

	res, err := h.broker.Sensitivity(r.Context(), req.Problem, method, *req.CriterionIndex, samples, h.options(req.Options))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AnalysisHandler) options(o *scoring.Options) scoring.Options {
	if o == nil {
		return h.cfg.Options()
	}
	return *o
}

// badRequest is a body that could not be read as JSON at all.
type badRequest struct{ err error }

func (e *badRequest) Error() string { return "invalid request body: " + e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var pe *scoring.ProblemError
		if errors.As(err, &pe) {
			return pe
		}
		return &badRequest{err}
	}
	return nil
}

func decodeProblem(r *http.Request) (*scoring.Problem, error) {
	if isYAML(r) {
		return scoring.DecodeProblemYAML(io.LimitReader(r.Body, maxBodyBytes))
	}
	p := &scoring.Problem{}
	if err := decodeBody(r, p); err != nil {
		return nil, err
	}
	return p, nil
}

func isYAML(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.Contains(mt, "yaml")
}

func missingProblem() error {
	return &scoring.ProblemError{Kind: scoring.KindMalformedProblem, Entity: "problem", Detail: "problem is required"}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// writeError maps rejected problems to 422 with their kind and entity, and
// unreadable bodies to 400.
func writeError(w http.ResponseWriter, err error) {
	var pe *scoring.ProblemError
	var br *badRequest
	switch {
	case errors.As(err, &pe):
		metrics.ValidationFailures.WithLabelValues(string(pe.Kind)).Inc()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":  pe.Error(),
			"kind":   string(pe.Kind),
			"entity": pe.Entity,
		})
	case errors.As(err, &br):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": br.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprint(err)})
	}
}
