package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Decision/internal/broker"
	"github.com/MikeSquared-Agency/Decision/internal/config"
	"github.com/MikeSquared-Agency/Decision/internal/scoring"
	"github.com/MikeSquared-Agency/Decision/internal/store"
)

type ProblemsHandler struct {
	store  store.Store
	broker *broker.Broker
	cfg    *config.Config
}

func NewProblemsHandler(s store.Store, b *broker.Broker, cfg *config.Config) *ProblemsHandler {
	return &ProblemsHandler{store: s, broker: b, cfg: cfg}
}

type CreateProblemRequest struct {
	Name        string           `json:"name,omitempty"`
	Description string           `json:"description,omitempty"`
	Problem     *scoring.Problem `json:"problem"`
}

type CreateRunRequest struct {
	Kind           string           `json:"kind,omitempty"`
	Method         string           `json:"method"`
	Options        *scoring.Options `json:"options,omitempty"`
	CriterionIndex int              `json:"criterion_index,omitempty"`
	SampleCount    int              `json:"sample_count,omitempty"`
	Source         string           `json:"source,omitempty"`
}

// Create stores a validated problem. The body is either a CreateProblemRequest
// or, with a YAML content type, a bare problem document.
func (h *ProblemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProblemRequest
	if isYAML(r) {
		p, err := decodeProblem(r)
		if err != nil {
			writeError(w, err)
			return
		}
		req.Problem = p
	} else if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Problem == nil {
		writeError(w, missingProblem())
		return
	}
	if err := scoring.Validate(req.Problem); err != nil {
		writeError(w, err)
		return
	}

	rec := &store.ProblemRecord{
		Name:        firstNonEmpty(req.Name, req.Problem.Name),
		Description: req.Description,
		Problem:     req.Problem,
	}
	if err := h.broker.CreateProblem(r.Context(), rec); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *ProblemsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.ProblemFilter{
		Name:   r.URL.Query().Get("name"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	problems, err := h.store.ListProblems(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if problems == nil {
		problems = []*store.ProblemRecord{}
	}
	writeJSON(w, http.StatusOK, problems)
}

func (h *ProblemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadProblem(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *ProblemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadProblem(w, r)
	if !ok {
		return
	}
	if err := h.broker.DeleteProblem(r.Context(), rec); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "problem not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateRun queues an analysis of a stored problem. With ?wait=true the run
// is executed before the response is written.
func (h *ProblemsHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadProblem(w, r)
	if !ok {
		return
	}
	var req CreateRunRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, err)
		return
	}
	method, err := scoring.ParseMethod(firstNonEmpty(r.URL.Query().Get("method"), req.Method))
	if err != nil {
		writeError(w, err)
		return
	}
	kind := store.RunKind(firstNonEmpty(req.Kind, string(store.KindAnalyze)))
	if kind != store.KindAnalyze && kind != store.KindSensitivity {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind must be analyze or sensitivity"})
		return
	}
	if kind == store.KindSensitivity && req.SampleCount != 0 {
		if err := scoring.ValidateSampleCount(req.SampleCount); err != nil {
			writeError(w, err)
			return
		}
	}

	opts := h.cfg.Options()
	if req.Options != nil {
		opts = *req.Options
	}
	run := &store.Run{
		ProblemID:      rec.ID,
		Kind:           kind,
		Source:         req.Source,
		Method:         method,
		Options:        opts,
		CriterionIndex: req.CriterionIndex,
		SampleCount:    req.SampleCount,
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		if err := h.broker.RunNow(r.Context(), run); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, run)
		return
	}

	if err := h.broker.Enqueue(r.Context(), run); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (h *ProblemsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadProblem(w, r)
	if !ok {
		return
	}
	filter := store.RunFilter{
		ProblemID: &rec.ID,
		Limit:     queryInt(r, "limit"),
		Offset:    queryInt(r, "offset"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := store.RunStatus(s)
		filter.Status = &status
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *ProblemsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid run id"})
		return
	}

	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *ProblemsHandler) loadProblem(w http.ResponseWriter, r *http.Request) (*store.ProblemRecord, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid problem id"})
		return nil, false
	}

	rec, err := h.store.GetProblem(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return nil, false
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "problem not found"})
		return nil, false
	}
	return rec, true
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
