// Package httphandler is the HTTP driving adapter that serves the REST API.
package httphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/efisher/mailhub/internal/application"
	"github.com/efisher/mailhub/internal/domain/model"
	"github.com/efisher/mailhub/internal/domain/port/driven"
)

const defaultStoredLimit = 50

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	tokens       *application.TokenService
	ingest       *application.IngestService
	messageStore driven.MessageStore
	logger       *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	tokens *application.TokenService,
	ingest *application.IngestService,
	messageStore driven.MessageStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		tokens:       tokens,
		ingest:       ingest,
		messageStore: messageStore,
		logger:       logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with auth, logging and recovery middleware. The health endpoint and the
// OAuth callback stay outside the auth wrapper: the callback arrives from the
// provider's redirect and is correlated through its state token instead.
func NewServeMux(h *Handler, resolver driven.AccountResolver, logger *slog.Logger) http.Handler {
	authed := http.NewServeMux()
	authed.HandleFunc("GET /api/v1/mailbox/connect", h.ConnectMailbox)
	authed.HandleFunc("GET /api/v1/mailbox/status", h.MailboxStatus)
	authed.HandleFunc("DELETE /api/v1/mailbox", h.DisconnectMailbox)
	authed.HandleFunc("GET /api/v1/messages", h.FetchMessages)
	authed.HandleFunc("GET /api/v1/messages/stored", h.ListStoredMessages)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/mailbox/callback", h.MailboxCallback)
	mux.Handle("/api/v1/", authMiddleware(resolver, logger, authed))

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ConnectMailbox starts the authorization flow and returns the consent URL.
func (h *Handler) ConnectMailbox(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	url, err := h.tokens.InitiateAuthorization(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "initiating authorization", err)
		return
	}

	writeJSON(w, http.StatusOK, ConnectResponse{AuthorizationURL: url})
}

// MailboxCallback completes the authorization flow from the provider redirect.
// The state token resolves the account that initiated the flow.
func (h *Handler) MailboxCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if denied := q.Get("error"); denied != "" {
		writeError(w, http.StatusBadRequest, "authorization denied: "+denied)
		return
	}

	id, ok := h.tokens.ConsumeAuthorizationState(q.Get("state"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown or expired state")
		return
	}

	cred, err := h.tokens.CompleteAuthorization(r.Context(), id, q.Get("code"))
	if err != nil {
		h.writeServiceError(w, "completing authorization", err)
		return
	}

	writeJSON(w, http.StatusOK, CallbackResponse{
		Connected: true,
		ExpiresAt: cred.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// MailboxStatus reports whether the account holds a usable credential.
func (h *Handler) MailboxStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	writeJSON(w, http.StatusOK, MailboxStatusResponse{
		Connected: h.tokens.HasValidAuthorization(r.Context(), id),
	})
}

// DisconnectMailbox revokes the account's mailbox authorization.
func (h *Handler) DisconnectMailbox(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.tokens.Revoke(r.Context(), id); err != nil {
		h.writeServiceError(w, "revoking authorization", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// FetchMessages ingests recent mailbox messages and returns the newly stored,
// classified ones.
func (h *Handler) FetchMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	msgs, err := h.ingest.FetchAndClassify(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "fetching messages", err)
		return
	}

	writeJSON(w, http.StatusOK, toMessageResponses(msgs))
}

// ListStoredMessages returns previously stored messages, optionally filtered
// by priority, with per-priority counts.
func (h *Handler) ListStoredMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	limit := defaultStoredLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	var (
		msgs []model.Message
		err  error
	)
	if raw := r.URL.Query().Get("priority"); raw != "" {
		priority, perr := model.ParsePriority(raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid priority")
			return
		}
		msgs, err = h.messageStore.ListByAccountAndPriority(r.Context(), id, priority, limit)
	} else {
		msgs, err = h.messageStore.ListByAccount(r.Context(), id, limit)
	}
	if err != nil {
		h.writeServiceError(w, "listing stored messages", err)
		return
	}

	counts, err := h.messageStore.CountByPriority(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "counting stored messages", err)
		return
	}

	countsByName := make(map[string]int64, len(counts))
	for p, n := range counts {
		countsByName[p.String()] = n
	}

	writeJSON(w, http.StatusOK, StoredMessagesResponse{
		Messages: toMessageResponses(msgs),
		Counts:   countsByName,
	})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps application errors to HTTP status codes. Not holding
// an authorization is a conflict the client can fix by connecting; a broken
// refresh means the stored credential no longer works and requires reauth.
func (h *Handler) writeServiceError(w http.ResponseWriter, action string, err error) {
	var (
		authErr    *model.AuthorizationError
		refreshErr *model.TokenRefreshError
		fetchErr   *model.MessageFetchError
	)

	switch {
	case errors.Is(err, model.ErrNotConnected), errors.Is(err, model.ErrNoValidCredential):
		writeError(w, http.StatusConflict, "mailbox not connected")
	case errors.As(err, &refreshErr):
		writeError(w, http.StatusUnauthorized, "mailbox authorization expired, reconnect required")
	case errors.As(err, &authErr):
		writeError(w, http.StatusBadRequest, authErr.Message)
	case errors.As(err, &fetchErr):
		h.logger.Error(action+" failed", "code", fetchErr.Code, "error", err)
		writeError(w, http.StatusBadGateway, "mail provider unavailable")
	default:
		h.logger.Error(action+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
