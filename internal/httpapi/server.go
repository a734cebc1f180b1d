// Package httpapi is the REST surface over the placement service. It only
// decodes requests, resolves the actor, and maps domain errors to statuses;
// every rule lives below it.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	apperrors "internship-placement/internal/common/errors"
	"internship-placement/internal/common/logger"
	"internship-placement/internal/placement"
	"internship-placement/internal/service"
)

// ActorResolver turns a bearer token into an acting principal.
type ActorResolver interface {
	Resolve(ctx context.Context, token string) (*placement.Actor, error)
}

type Server struct {
	svc      *service.ApplicationService
	resolver ActorResolver
	logger   logger.Logger
}

func New(svc *service.ApplicationService, resolver ActorResolver, log logger.Logger) *Server {
	return &Server{
		svc:      svc,
		resolver: resolver,
		logger:   log.WithFields(map[string]interface{}{"component": "http-api"}),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("POST /api/offers", s.withActor(s.createOffer))
	mux.Handle("GET /api/offers", s.withActor(s.searchOffers))
	mux.Handle("GET /api/offers/mine", s.withActor(s.listMyOffers))
	mux.Handle("POST /api/offers/{id}/publish", s.withActor(s.publishOffer))
	mux.Handle("POST /api/offers/{id}/close", s.withActor(s.closeOffer))
	mux.Handle("GET /api/offers/{id}/applications", s.withActor(s.listOfferApplications))

	mux.Handle("POST /api/applications", s.withActor(s.apply))
	mux.Handle("GET /api/applications/mine", s.withActor(s.listMyApplications))
	mux.Handle("GET /api/applications/{id}", s.withActor(s.getApplication))
	mux.Handle("POST /api/applications/{id}/actions/{action}", s.withActor(s.applyAction))

	mux.Handle("POST /api/agreements", s.withActor(s.requestAgreement))
	mux.Handle("POST /api/agreements/{id}/decision", s.withActor(s.decideAgreement))

	mux.Handle("GET /api/notifications", s.withActor(s.listNotifications))
	mux.Handle("GET /api/notifications/unread-count", s.withActor(s.unreadCount))
	mux.Handle("POST /api/notifications/{id}/read", s.withActor(s.markRead))
	mux.Handle("POST /api/notifications/read-all", s.withActor(s.markAllRead))
	mux.Handle("DELETE /api/notifications/{id}", s.withActor(s.deleteNotification))

	return mux
}

type actorHandler func(w http.ResponseWriter, r *http.Request, actor placement.Actor)

// withActor resolves the Authorization header before the handler runs.
func (s *Server) withActor(next actorHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			s.writeError(w, apperrors.NewUnauthorizedError(apperrors.GuardRole, "missing bearer token"))
			return
		}

		actor, err := s.resolver.Resolve(r.Context(), token)
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r, *actor)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			s.logger.Error("response encode failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := httpStatus(code)

	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed", map[string]interface{}{
			"code":      string(code),
			"category":  apperrors.Category(code),
			"retryable": apperrors.IsRetryable(err),
		})
	}
	if apperrors.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}

	var body interface{}
	if derr, ok := err.(*apperrors.DomainError); ok {
		body = map[string]interface{}{"error": derr}
	} else {
		body = map[string]interface{}{"error": map[string]string{
			"code":    string(code),
			"message": err.Error(),
		}}
	}
	s.writeJSON(w, status, body)
}

func httpStatus(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidationError:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeAlreadyApplied, apperrors.ErrCodeOfferUnavailable,
		apperrors.ErrCodeInvalidTransition, apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodePreconditionFailed:
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.NewValidationError("malformed request body")
	}
	return nil
}
