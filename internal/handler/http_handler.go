package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pesio-ai/be-catering-requests/internal/auth"
	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/errors"
	"github.com/pesio-ai/be-catering-requests/internal/logger"
	"github.com/pesio-ai/be-catering-requests/internal/metrics"
	"github.com/pesio-ai/be-catering-requests/internal/service"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the workflow services exposed over HTTP.
type Services struct {
	Users         *service.UserService
	Requests      *service.RequestService
	Invoices      *service.InvoiceService
	Payments      *service.PaymentService
	Attachments   *service.AttachmentService
	Notifications *service.NotificationService
	Reports       *service.ReportService
}

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins []string
	// MaxUploadBytes caps the multipart body of an attachment upload.
	MaxUploadBytes int64
	RequestTimeout time.Duration
	// Files serves stored attachments under FilesPath when set.
	Files     http.Handler
	FilesPath string
}

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	svc      Services
	verifier TokenVerifier
	health   Pinger
	opts     Options
	log      *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(svc Services, verifier TokenVerifier, health Pinger, opts Options, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:      svc,
		verifier: verifier,
		health:   health,
		opts:     opts,
		log:      log,
	}
}

// Routes builds the router.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(h.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.InstrumentHandler)
	if len(h.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", h.Health)
	r.Handle("/metrics", metrics.Handler())
	// Absolute public URLs are served elsewhere.
	if h.opts.Files != nil && strings.HasPrefix(h.opts.FilesPath, "/") && h.opts.FilesPath != "/" {
		prefix := strings.TrimRight(h.opts.FilesPath, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, h.opts.Files))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if h.opts.RequestTimeout > 0 {
			r.Use(chimw.Timeout(h.opts.RequestTimeout))
		}
		r.Use(h.authenticate)

		r.Get("/me", h.GetMe)
		r.Patch("/me", h.UpdateMe)
		r.Put("/users/{id}/role", h.UpdateUserRole)

		r.Get("/departments", h.ListDepartments)
		r.Post("/departments", h.CreateDepartment)

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Post("/", h.CreateRequest)
			r.Get("/{id}", h.GetRequest)
			r.Put("/{id}", h.EditRequest)
			r.Get("/{id}/history", h.GetRequestHistory)
			r.Post("/{id}/submit", h.SubmitRequest)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
			r.Post("/{id}/revision", h.RequestRevision)
			r.Post("/{id}/fulfill", h.FulfillRequest)
			r.Post("/{id}/close", h.CloseRequest)
		})
		r.Get("/approvals/pending", h.ListPendingApprovals)

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.ListInvoices)
			r.Post("/", h.CreateInvoice)
			r.Get("/{id}", h.GetInvoice)
			r.Patch("/{id}", h.UpdateInvoice)
		})
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
			r.Get("/{id}", h.GetPayment)
			r.Patch("/{id}", h.UpdatePayment)
		})

		r.Get("/attachments", h.ListAttachments)
		r.Post("/attachments", h.UploadAttachment)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Get("/unread-count", h.UnreadCount)
			r.Post("/read-all", h.MarkAllRead)
			r.Post("/{id}/read", h.MarkRead)
		})

		r.Get("/dashboard/summary", h.DashboardSummary)
	})

	return r
}

// Health reports whether the store is reachable.
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate verifies the bearer token, loads or creates the user and
// stores the actor in the request context. Roles always come from the store.
func (h *HTTPHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		identity, err := h.verifier.Verify(token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		user, err := h.svc.Users.EnsureUser(r.Context(), identity)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		actor := domain.NewActor(user.ID, user.Role)
		next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actor)))
	})
}

// requestLogger logs one line per request.
func (h *HTTPHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev := h.log.Info()
			switch {
			case status >= 500:
				ev = h.log.Error()
			case status >= 400:
				ev = h.log.Warn()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", time.Since(start)).
				Int("bytes", ww.BytesWritten()).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("HTTP request")
		}()

		next.ServeHTTP(ww, r)
	})
}

// actorFrom returns the authenticated actor. Routes behind authenticate
// always have one.
func actorFrom(r *http.Request) domain.Actor {
	actor, _ := auth.ActorFrom(r.Context())
	return actor
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    errors.ErrCode `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// writeError renders err. Errors outside the taxonomy are logged and
// reported as internal without their message.
func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := errors.As(err)
	if !ok || e.Code == errors.ErrCodeInternal {
		h.log.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorPayload{
			Code:    errors.ErrCodeInternal,
			Message: "internal error",
		}})
		return
	}

	writeJSON(w, errors.HTTPStatus(e.Code), errorBody{Error: errorPayload{
		Code:    e.Code,
		Message: e.Message,
		Field:   e.Field,
		Details: e.Details,
	}})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type listResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, listResponse[T]{Data: items, Count: len(items)})
}

// decode reads a JSON body, rejecting unknown fields.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid request body: "+err.Error())
	}
	return nil
}

// decodeOptional is decode for endpoints whose body may be empty.
func decodeOptional(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid request body: "+err.Error())
	}
	return nil
}

// pageParams reads limit and offset query parameters.
func pageParams(r *http.Request) (int, int, error) {
	limit, err := intParam(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.InvalidInput(name, name+" must be a non-negative integer")
	}
	return v, nil
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, errors.InvalidInput(field, "invalid date format, expected YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	if t.IsZero() {
		return nil, errors.InvalidInput(field, field+" cannot be empty")
	}
	return &t, nil
}
