package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/paybridge/payments-gateway/internal/gateway/application"
)

// Handler exposes the payment lifecycle operations to admin actions and
// schedulers. It is a thin edge: decode, delegate, map error kinds to status
// codes.
type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracker *application.OrderTracker
	methods *application.PaymentMethods
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, tracker *application.OrderTracker, methods *application.PaymentMethods) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracker: tracker,
		methods: methods,
		tracer:  otel.Tracer("gateway-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/orders/{id}/capture", h.capture)
	r.Post("/orders/{id}/refund", h.refund)
	r.Post("/orders/{id}/cancel", h.cancel)
	r.Post("/orders/{id}/tracking", h.scheduleTracking)
	r.Post("/payment-methods/setup-intents", h.createSetupIntent)
	r.Post("/payment-methods", h.addPaymentMethod)
	return r
}

type errorResp struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) capture(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CaptureCharge")
	defer span.End()

	orderID := chi.URLParam(r, "id")
	result, err := h.service.Capture(ctx, orderID)
	if err != nil && result.Status == "" {
		h.writeError(w, err)
		return
	}
	// A populated result is returned even when the capture failed remotely;
	// the REST caller reads status/message out of the body.
	writeJSON(w, http.StatusOK, result)
}

type refundReq struct {
	AmountMinor int64  `json:"amount_minor"`
	Reason      string `json:"reason"`
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RefundCharge")
	defer span.End()

	var req refundReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	orderID := chi.URLParam(r, "id")
	if err := h.service.Refund(ctx, orderID, req.AmountMinor, req.Reason); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "success"})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelAuthorization")
	defer span.End()

	orderID := chi.URLParam(r, "id")
	if err := h.service.CancelAuthorization(ctx, orderID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "success"})
}

func (h *Handler) scheduleTracking(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ScheduleOrderTracking")
	defer span.End()

	orderID := chi.URLParam(r, "id")
	if err := h.tracker.ScheduleOrderTracking(ctx, orderID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type setupIntentReq struct {
	UserID          string `json:"user_id"`
	PaymentMethodID string `json:"payment_method"`
}

func (h *Handler) createSetupIntent(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateSetupIntent")
	defer span.End()

	var req setupIntentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentMethodID == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	si, err := h.methods.CreateAndConfirmSetupIntent(ctx, req.UserID, req.PaymentMethodID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": si.ID, "status": string(si.Status)})
}

type addPaymentMethodReq struct {
	UserID        string `json:"user_id"`
	SetupIntentID string `json:"setup_intent"`
}

func (h *Handler) addPaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddPaymentMethod")
	defer span.End()

	var req addPaymentMethodReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SetupIntentID == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.methods.AddPaymentMethod(ctx, req.UserID, req.SetupIntentID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "success"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var uncaptured *application.UncapturedPaymentError
	if errors.As(err, &uncaptured) {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: uncaptured.ErrorCode(), Message: uncaptured.Error()})
		return
	}
	var expired *application.IntentExpiredError
	if errors.As(err, &expired) {
		writeJSON(w, http.StatusConflict, errorResp{Code: "authorization-expired", Message: expired.Message})
		return
	}
	var remote *application.RemoteAPIError
	if errors.As(err, &remote) {
		writeJSON(w, http.StatusBadGateway, errorResp{Code: remote.Code, Message: remote.Message})
		return
	}
	if errors.Is(err, application.ErrMissingIntent) || errors.Is(err, application.ErrMissingCharge) || errors.Is(err, application.ErrNoCustomer) {
		writeJSON(w, http.StatusBadRequest, errorResp{Code: "invalid-order", Message: err.Error()})
		return
	}
	h.log.Error("request failed", "err", err)
	writeJSON(w, http.StatusInternalServerError, errorResp{Code: "internal", Message: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
