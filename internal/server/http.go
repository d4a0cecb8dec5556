package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"acmsync/internal/checkoutapi"
	"acmsync/internal/logging"
)

type apiHandler struct {
	service *Service
	store   *Store
	logger  *slog.Logger
}

// NewHandler returns the HTTP API for service. token, when set, is required
// as a bearer token on every protocol route.
func NewHandler(service *Service, store *Store, token string, logger *slog.Logger) http.Handler {
	h := &apiHandler{
		service: service,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "api-server"),
	}
	router := httprouter.New()
	router.GET("/healthz", h.handleHealth)
	for _, action := range checkoutapi.Actions {
		router.GET("/"+string(action)+"/:acm", authMiddleware(token, h.handleAction(action)))
	}
	router.GET("/acms", authMiddleware(token, h.handleList))
	router.GET("/srn/reserve", authMiddleware(token, h.handleReserveSRN))
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusNotFound, "no such endpoint")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		h.logger.Error("handler panic", logging.Any("panic", v), logging.String("path", r.URL.Path))
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
	return h.withRequestLog(router)
}

func (h *apiHandler) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		ctx := logging.WithRequestID(r.Context(), id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		rec.Header().Set("X-Request-ID", id)
		next.ServeHTTP(rec, r.WithContext(ctx))
		h.logger.Debug("request",
			logging.String(logging.FieldCorrelationID, id),
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("elapsed", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *apiHandler) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": checkoutapi.StatusOK, "version": checkoutapi.ProtocolVersion})
}

func (h *apiHandler) handleAction(action checkoutapi.Action) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		q := r.URL.Query()
		version, err := strconv.Atoi(q.Get("version"))
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "version must be an integer")
			return
		}
		req := checkoutapi.Request{
			Action:   action,
			ACM:      ps.ByName("acm"),
			Identity: identityFromQuery(r),
			Version:  version,
			Filename: q.Get("filename"),
			Key:      q.Get("key"),
		}
		resp, err := h.service.Handle(r.Context(), req)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, resp)
	}
}

func (h *apiHandler) handleList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	states, err := h.service.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if states == nil {
		states = []checkoutapi.State{}
	}
	h.writeJSON(w, http.StatusOK, checkoutapi.ListResponse{Status: checkoutapi.StatusOK, ACMs: states})
}

func (h *apiHandler) handleReserveSRN(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	n, err := strconv.Atoi(q.Get("n"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "n must be an integer")
		return
	}
	version, err := strconv.Atoi(q.Get("version"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "version must be an integer")
		return
	}
	resp, err := h.service.ReserveSRN(r.Context(), identityFromQuery(r), n, version)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func identityFromQuery(r *http.Request) checkoutapi.Identity {
	q := r.URL.Query()
	return checkoutapi.Identity{
		Name:         q.Get("name"),
		Contact:      q.Get("contact"),
		ComputerName: q.Get("computername"),
	}
}

func (h *apiHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrBadRequest) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, _ := logging.RequestIDFromContext(r.Context())
	h.logger.Error("request failed",
		logging.Error(err),
		logging.String(logging.FieldCorrelationID, id),
		logging.String("path", r.URL.Path),
	)
	h.writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *apiHandler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (h *apiHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, checkoutapi.Response{Status: checkoutapi.StatusError, Message: message})
}
