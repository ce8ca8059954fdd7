package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"wristwatch-be/internal/apperror"
	"wristwatch-be/internal/logger"
	"wristwatch-be/internal/metrics"
	"wristwatch-be/internal/order"
	"wristwatch-be/internal/payment"
	"wristwatch-be/internal/utils"

	"go.uber.org/zap"
)

const (
	EventChargeSuccess = "charge.success"
	maxBodyBytes       = 1 << 20
)

// Payload is the subset of a Paystack event this service reads.
type Payload struct {
	Event string `json:"event"`
	Data  struct {
		ID        json.Number `json:"id"`
		Reference string      `json:"reference"`
		Status    string      `json:"status"`
	} `json:"data"`
}

// Reconciler is the order side of a confirmed charge.
type Reconciler interface {
	VerifyPayment(ctx context.Context, reference string) (*order.VerifyResult, error)
}

type Handler struct {
	gateway payment.Gateway
	log     payment.WebhookLog
	orders  Reconciler
	metrics *metrics.Business
}

func NewPaystackHandler(gateway payment.Gateway, log payment.WebhookLog, orders Reconciler, m *metrics.Business) *Handler {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Handler{gateway: gateway, log: log, orders: orders, metrics: m}
}

// ServeHTTP verifies the signature, records the delivery, and hands
// charge.success events to reconciliation. Transient failures answer 500 and
// leave the delivery open for the provider's retry; failures a retry cannot
// fix are acknowledged with 200.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(zap.String("provider", payment.ProviderPaystack))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		utils.WriteJSONError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.gateway.VerifySignature(body, r.Header.Get(payment.PaystackSignatureHeader)); err != nil {
		h.metrics.WebhookReceived.WithLabelValues("unknown", "bad_signature").Inc()
		log.Warn("webhook rejected", zap.Error(err))
		utils.WriteJSONError(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		utils.WriteJSONError(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	log = log.With(zap.String("event", p.Event), zap.String("reference", p.Data.Reference))

	eventID := p.Event + ":" + p.Data.ID.String()
	if p.Data.ID == "" {
		eventID = p.Event + ":" + p.Data.Reference
	}

	webhookID, dup, err := h.log.SavePaymentWebhook(ctx, payment.ProviderPaystack, eventID, p.Event, p.Data.Reference, body, true)
	if err != nil {
		log.Error("failed to record webhook", zap.Error(err))
		utils.WriteJSONError(w, "failed to record webhook", http.StatusInternalServerError)
		return
	}
	if dup {
		h.metrics.WebhookReceived.WithLabelValues(p.Event, "duplicate").Inc()
		log.Info("duplicate webhook ignored")
		utils.WriteSuccess(w, http.StatusOK, "duplicate", nil)
		return
	}

	if p.Event != EventChargeSuccess || p.Data.Reference == "" {
		h.metrics.WebhookReceived.WithLabelValues(p.Event, "ignored").Inc()
		h.markProcessed(ctx, webhookID)
		utils.WriteSuccess(w, http.StatusOK, "ignored", nil)
		return
	}

	res, err := h.orders.VerifyPayment(ctx, p.Data.Reference)
	if err != nil {
		retry := retryable(err)
		h.metrics.WebhookReceived.WithLabelValues(p.Event, "failed").Inc()
		if mErr := h.log.MarkWebhookFailed(ctx, webhookID, err.Error(), retry); mErr != nil {
			log.Error("failed to mark webhook failed", zap.Error(mErr))
		}
		if retry {
			log.Error("webhook processing failed", zap.Error(err))
			utils.WriteJSONError(w, "processing failed", http.StatusInternalServerError)
			return
		}
		log.Warn("webhook not applied", zap.Error(err))
		utils.WriteSuccess(w, http.StatusOK, apperror.Message(err), nil)
		return
	}

	h.metrics.WebhookReceived.WithLabelValues(p.Event, string(res.Status)).Inc()
	h.markProcessed(ctx, webhookID)
	log.Info("webhook processed", zap.String("status", string(res.Status)))
	utils.WriteSuccess(w, http.StatusOK, "ok", map[string]string{"status": string(res.Status)})
}

// retryable reports failures a later delivery may not hit again: store
// errors and provider outages or timeouts.
func retryable(err error) bool {
	return apperror.Is(err, apperror.KindInternal) ||
		errors.Is(err, payment.ErrProviderUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

func (h *Handler) markProcessed(ctx context.Context, id int64) {
	if err := h.log.MarkWebhookProcessed(ctx, id); err != nil {
		logger.FromCtx(ctx).Error("failed to mark webhook processed", zap.Int64("webhook_id", id), zap.Error(err))
	}
}
