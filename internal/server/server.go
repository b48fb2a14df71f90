// Package server exposes the offer evaluator and call-state store over HTTP
// for the voice and text layers.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/dock-negotiator/internal/decision"
	"github.com/iwvelando/dock-negotiator/internal/session"
	"github.com/iwvelando/dock-negotiator/pkg/constants"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request identifier.
const RequestIDHeader = "X-Request-ID"

type handler struct {
	logger         *zap.Logger
	store          session.Store
	opts           decision.Options
	maxRequestSize int64
	version        string
}

// NewHandler constructs the HTTP handler that serves the offer API.
func NewHandler(logger *zap.Logger, store session.Store, opts decision.Options, maxRequestSize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = session.NewMemoryStore(0, nil)
	}

	if maxRequestSize <= 0 {
		maxRequestSize = constants.DefaultMaxRequestSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:         logger,
		store:          store,
		opts:           opts,
		maxRequestSize: maxRequestSize,
		version:        trimmedVersion,
	}

	mux := http.NewServeMux()

	// Voice-tool bridge
	mux.HandleFunc("POST /api/tools/check-offer", h.handleCheckOffer)

	// Thresholds plus verdict for the text loop and dashboards
	mux.HandleFunc("POST /api/negotiation/strategy", h.handleStrategy)

	// Call-state maintenance
	mux.HandleFunc("GET /api/calls/{id}", h.handleGetCall)
	mux.HandleFunc("POST /api/calls/{id}/transcript", h.handleAppendTranscript)
	mux.HandleFunc("DELETE /api/calls/{id}", h.handleDeleteCall)

	mux.HandleFunc("GET /api/version", h.handleVersion)
	mux.HandleFunc("GET /healthz", h.handleHealth)

	return h.withRequestID(mux)
}

func (h *handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("handled request",
			zap.String("op", "server.request"),
			zap.String("requestId", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type strategyResponse struct {
	Strategy *decision.StrategySummary `json:"strategy"`
	Decision decision.Result           `json:"decision"`
}

type transcriptRequest struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

func (h *handler) handleCheckOffer(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCheckOffer"

	req, err := h.decodeRequest(w, r)
	if err != nil {
		// The bridge always answers with a verdict the agent can speak.
		h.logger.Warn("undecodable offer request", zap.String("op", op), zap.Error(err))
		h.writeJSON(w, http.StatusOK, decision.Result{
			Reason:         "could not read the offer request",
			InternalReason: constants.ReasonUnparseable,
		})
		return
	}

	callID := strings.TrimSpace(req.CallID)
	if callID != "" {
		if state, err := h.store.Get(r.Context(), callID); err != nil {
			h.logger.Warn("failed to load call state", zap.String("op", op), zap.String("callId", callID), zap.Error(err))
		} else if state.Pushbacks > req.PriorPushbacks {
			req.PriorPushbacks = state.Pushbacks
		}
	}

	result := decision.EvaluateOffer(h.logger, req, h.opts)

	if callID != "" {
		h.recordDecision(r, callID, req, result)
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) recordDecision(r *http.Request, callID string, req decision.Request, result decision.Result) {
	const op = "server.recordDecision"
	ctx := r.Context()

	if result.SuggestedCounterOffer != nil {
		if _, err := h.store.IncrementPushbacks(ctx, callID); err != nil {
			h.logger.Warn("failed to record pushback", zap.String("op", op), zap.String("callId", callID), zap.Error(err))
		}
	}

	entries := []session.Entry{
		{Speaker: session.SpeakerWarehouse, Text: fmt.Sprintf("offered %s", req.ProposedTime)},
		{Speaker: session.SpeakerAgent, Text: result.Reason},
	}
	for _, entry := range entries {
		if err := h.store.AppendTranscript(ctx, callID, entry); err != nil {
			h.logger.Warn("failed to append transcript", zap.String("op", op), zap.String("callId", callID), zap.Error(err))
			return
		}
	}
}

func (h *handler) handleStrategy(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleStrategy"

	req, err := h.decodeRequest(w, r)
	if err != nil {
		h.respondDecodeError(w, err, op)
		return
	}

	result := decision.EvaluateOffer(h.logger, req, h.opts)
	if result.Strategy == nil {
		h.respondErrorWithOp(w, http.StatusUnprocessableEntity, result.Reason, op)
		return
	}
	h.writeJSON(w, http.StatusOK, strategyResponse{Strategy: result.Strategy, Decision: result})
}

func (h *handler) handleGetCall(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetCall"

	state, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	if state.Transcript == nil {
		state.Transcript = []session.Entry{}
	}
	h.writeJSON(w, http.StatusOK, state)
}

func (h *handler) handleAppendTranscript(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAppendTranscript"

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	var body transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondDecodeError(w, err, op)
		return
	}
	speaker := strings.ToLower(strings.TrimSpace(body.Speaker))
	if speaker != session.SpeakerWarehouse && speaker != session.SpeakerAgent {
		h.respondErrorWithOp(w, http.StatusBadRequest,
			fmt.Sprintf("speaker must be %q or %q", session.SpeakerWarehouse, session.SpeakerAgent), op)
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		h.respondErrorWithOp(w, http.StatusBadRequest, "text is required", op)
		return
	}

	id := r.PathValue("id")
	if err := h.store.AppendTranscript(r.Context(), id, session.Entry{Speaker: speaker, Text: body.Text}); err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	state, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

func (h *handler) handleDeleteCall(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeleteCall"

	if err := h.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleVersion(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) decodeRequest(w http.ResponseWriter, r *http.Request) (decision.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	var req decision.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return decision.Request{}, err
	}
	return req, nil
}

func (h *handler) respondDecodeError(w http.ResponseWriter, err error, op string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request exceeds limit of %d bytes", h.maxRequestSize), op)
		return
	}
	h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
}

func (h *handler) respondStoreError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, session.ErrInvalidCallID) {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("call state unavailable: %v", err), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
