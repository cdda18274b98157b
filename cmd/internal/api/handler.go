// Package api wires inlet's HTTP endpoints to the signature verifier and the
// message store.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"inlet/cmd/internal/message"
	"inlet/cmd/internal/metrics"
	"inlet/cmd/security/signature"
)

// SignatureHeader carries the hex HMAC-SHA256 digest of the raw request body.
const SignatureHeader = "X-Signature"

// Config holds the handler's knobs.
type Config struct {
	// MaxBodyBytes caps a webhook body read. Oversized bodies are rejected
	// as invalid payloads.
	MaxBodyBytes int64
}

// DefaultMaxBodyBytes bounds webhook bodies; the payload itself is capped at
// 4096 text characters, so 1 MiB leaves generous headroom.
const DefaultMaxBodyBytes = 1 << 20

// Handler serves ingestion, query, and health endpoints.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	store    message.Store
	verifier *signature.Verifier
	metrics  *metrics.Metrics
}

// NewHandler constructs a Handler. All dependencies are required except that
// the verifier may be unconfigured (no secret); ingestion then fails with a
// configuration error and readiness reports 503 until the secret is set.
func NewHandler(log *slog.Logger, cfg Config, store message.Store, verifier *signature.Verifier, m *metrics.Metrics) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("api: nil store")
	}
	if verifier == nil {
		return nil, errors.New("api: nil verifier")
	}
	if m == nil {
		return nil, errors.New("api: nil metrics")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	return &Handler{
		log:      log,
		cfg:      cfg,
		store:    store,
		verifier: verifier,
		metrics:  m,
	}, nil
}

// Register wires the service routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/webhook", h.handleWebhook)
	mux.HandleFunc("/messages", h.handleMessages)
	mux.HandleFunc("/stats", h.handleStats)
	mux.HandleFunc("/health/live", h.handleHealthLive)
	mux.HandleFunc("/health/ready", h.handleHealthReady)
}

// ---- ingestion ----

// handleWebhook runs the per-delivery pipeline: raw body -> signature ->
// validation -> idempotent insert. Exactly one result classification, one log
// event, and at most one insert attempt per request.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	requestID := RequestIDFromContext(r.Context())

	// The signature covers the exact bytes on the wire; read them before any
	// decoding.
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		h.metrics.WebhookRequests.WithLabelValues(metrics.ResultInvalidPayload).Inc()
		h.log.Warn("webhook.body_read_failed", "request_id", requestID, "result", metrics.ResultInvalidPayload, "err", err)
		writeError(w, http.StatusBadRequest, "invalid_payload", "unreadable or oversized body")
		return
	}

	ok, err := h.verifier.Verify(raw, r.Header.Get(SignatureHeader))
	if err != nil {
		// Secret not configured: a server-side fault, not a sender error.
		// Outside the result taxonomy, so no request counter.
		h.log.Error("webhook.secret_unconfigured", "request_id", requestID, "err", err)
		writeError(w, http.StatusInternalServerError, "configuration_missing", "webhook secret is not configured")
		return
	}
	if !ok {
		h.metrics.WebhookRequests.WithLabelValues(metrics.ResultInvalidSignature).Inc()
		h.log.Warn("webhook.invalid_signature", "request_id", requestID, "result", metrics.ResultInvalidSignature)
		writeError(w, http.StatusUnauthorized, "invalid_signature", "signature verification failed")
		return
	}

	m, verr := message.ParsePayload(raw)
	if verr != nil {
		h.metrics.WebhookRequests.WithLabelValues(metrics.ResultInvalidPayload).Inc()
		h.log.Warn("webhook.invalid_payload",
			"request_id", requestID,
			"result", metrics.ResultInvalidPayload,
			"kind", string(verr.Kind),
			"field", verr.Field,
		)
		writeError(w, http.StatusBadRequest, "invalid_payload", verr.Error())
		return
	}

	outcome, err := h.store.Insert(r.Context(), m)
	if err != nil {
		// Retryable, unlike the 4xx rejections above.
		h.log.Error("webhook.store_failed", "request_id", requestID, "message_id", m.MessageID, "err", err)
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "message store unavailable")
		return
	}

	h.metrics.WebhookRequests.WithLabelValues(metrics.ResultOK).Inc()
	if outcome == message.OutcomeStored {
		h.metrics.MessagesStored.Inc()
	}

	h.log.Info("webhook.ok",
		"request_id", requestID,
		"message_id", m.MessageID,
		"duplicate", outcome == message.OutcomeDuplicate,
		"result", metrics.ResultOK,
	)
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// ---- queries ----

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	f, code, err := parseListFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, code, err.Error())
		return
	}

	items, total, err := h.store.List(r.Context(), f)
	if err != nil {
		h.log.Error("messages.list_failed", "request_id", RequestIDFromContext(r.Context()), "err", err)
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "message store unavailable")
		return
	}

	resp := pageResponse{
		Items:  make([]messageResponse, 0, len(items)),
		Total:  total,
		Limit:  f.Limit,
		Offset: f.Offset,
	}
	for _, m := range items {
		resp.Items = append(resp.Items, messageResponse{
			MessageID: m.MessageID,
			From:      m.From,
			To:        m.To,
			TS:        message.FormatTS(m.TS),
			Text:      m.Text,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseListFilter validates the listing query parameters. Out-of-range values
// are client errors, not silently clamped.
func parseListFilter(r *http.Request) (message.ListFilter, string, error) {
	q := r.URL.Query()

	f := message.ListFilter{
		Limit: message.DefaultListLimit,
		From:  q.Get("from"),
		Query: q.Get("q"),
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > message.MaxListLimit {
			return f, "invalid_limit", errors.New("limit must be an integer in [1,100]")
		}
		f.Limit = n
	}

	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, "invalid_offset", errors.New("offset must be a non-negative integer")
		}
		f.Offset = n
	}

	if raw := q.Get("since"); raw != "" {
		ts, err := message.ParseTS(raw)
		if err != nil {
			return f, "invalid_since", errors.New("since must be ISO-8601 UTC with a Z suffix")
		}
		f.Since = &ts
	}

	return f, "", nil
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	st, err := h.store.Stats(r.Context())
	if err != nil {
		h.log.Error("stats.failed", "request_id", RequestIDFromContext(r.Context()), "err", err)
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "message store unavailable")
		return
	}

	resp := statsResponse{
		TotalMessages:     st.TotalMessages,
		SendersCount:      st.SendersCount,
		MessagesPerSender: make([]senderStatsResponse, 0, len(st.MessagesPerSender)),
	}
	for _, sc := range st.MessagesPerSender {
		resp.MessagesPerSender = append(resp.MessagesPerSender, senderStatsResponse{Sender: sc.Sender, Count: sc.Count})
	}
	if st.FirstMessageTS != nil {
		s := message.FormatTS(*st.FirstMessageTS)
		resp.FirstMessageTS = &s
	}
	if st.LastMessageTS != nil {
		s := message.FormatTS(*st.LastMessageTS)
		resp.LastMessageTS = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- health ----

func (h *Handler) handleHealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// handleHealthReady reports 200 only when the service can actually ingest:
// shared secret present and the store reachable within its probe bound.
func (h *Handler) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.verifier.Configured() {
		h.log.Warn("ready.secret_unconfigured", "request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusServiceUnavailable, "configuration_missing", "webhook secret is not configured")
		return
	}
	if !h.store.Reachable(r.Context()) {
		h.log.Warn("ready.store_unreachable", "request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "message store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
