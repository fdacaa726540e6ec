package handler

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"sacco-ledger/internal/adapter/http/dto"
	"sacco-ledger/internal/adapter/http/middleware"
	"sacco-ledger/internal/core/ports"
	"sacco-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// EventQueue accepts normalized inbound events for async processing.
type EventQueue interface {
	Enqueue(ev ports.InboundEvent) bool
}

// WebhookHandler terminates the provider's callback URLs. Every endpoint
// acks 200 regardless of what the payload does internally; the provider
// retries anything else forever and we own our failures.
type WebhookHandler struct {
	secret  string
	paybill string
	queue   EventQueue
	intake  ports.IntakeService
	payout  ports.PayoutService
	log     zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(secret, paybill string, queue EventQueue, intake ports.IntakeService, payout ports.PayoutService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:  secret,
		paybill: paybill,
		queue:   queue,
		intake:  intake,
		payout:  payout,
		log:     log,
	}
}

// secretOK compares the shared-secret header in constant time. With no
// secret configured every delivery passes.
func (h *WebhookHandler) secretOK(c *gin.Context) bool {
	if h.secret == "" {
		return true
	}
	got := c.GetHeader(middleware.HeaderWebhookSecret)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

// C2BValidation answers the provider's synchronous pre-payment check.
// This is the only webhook allowed to say no: an unknown account ref is
// rejected before the customer's money moves.
func (h *WebhookHandler) C2BValidation(c *gin.Context) {
	var req dto.C2BNotification
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn().Err(err).Msg("malformed c2b validation payload")
		c.JSON(http.StatusOK, response.ProviderAck{ResultCode: 1, ResultDesc: "Rejected"})
		return
	}
	if !h.intake.ValidateAccountRef(c.Request.Context(), req.BillRefNumber) {
		c.JSON(http.StatusOK, response.ProviderAck{ResultCode: 1, ResultDesc: "Rejected"})
		return
	}
	response.Ack(c)
}

// C2BConfirmation ingests a completed customer payment. Parse, enqueue,
// ack; everything else happens off the request path.
func (h *WebhookHandler) C2BConfirmation(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Warn().Err(err).Msg("unreadable c2b confirmation body")
		response.Ack(c)
		return
	}

	var req dto.C2BNotification
	if err := json.Unmarshal(raw, &req); err != nil {
		h.log.Warn().Err(err).Msg("malformed c2b confirmation payload")
		response.Ack(c)
		return
	}
	if req.TransID == "" {
		h.log.Warn().Msg("c2b confirmation without TransID dropped")
		response.Ack(c)
		return
	}

	h.queue.Enqueue(req.ToInboundEvent(h.secretOK(c), raw))
	response.Ack(c)
}

// STKCallback ingests a push-payment result. Failed pushes carry no money
// and are only logged.
func (h *WebhookHandler) STKCallback(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.log.Warn().Err(err).Msg("unreadable stk callback body")
		response.Ack(c)
		return
	}

	var req dto.STKCallback
	if err := json.Unmarshal(raw, &req); err != nil {
		h.log.Warn().Err(err).Msg("malformed stk callback payload")
		response.Ack(c)
		return
	}
	cb := req.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		h.log.Warn().Msg("stk callback without checkout id dropped")
		response.Ack(c)
		return
	}
	if !req.Success() {
		h.log.Info().
			Str("checkout_id", cb.CheckoutRequestID).
			Int("result_code", cb.ResultCode).
			Str("result_desc", cb.ResultDesc).
			Msg("stk push failed, nothing to credit")
		response.Ack(c)
		return
	}

	h.queue.Enqueue(req.ToInboundEvent(h.paybill, "", h.secretOK(c), raw))
	response.Ack(c)
}

// B2CResult ingests a disbursement result callback.
func (h *WebhookHandler) B2CResult(c *gin.Context) {
	var req dto.B2CResultCallback
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn().Err(err).Msg("malformed b2c result payload")
		response.Ack(c)
		return
	}
	if err := h.payout.HandleResult(c.Request.Context(), req.ToProviderResult()); err != nil {
		h.log.Error().Err(err).Msg("b2c result processing failed")
	}
	response.Ack(c)
}

// B2CTimeout ingests a disbursement queue-timeout callback.
func (h *WebhookHandler) B2CTimeout(c *gin.Context) {
	var req dto.B2CTimeoutCallback
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn().Err(err).Msg("malformed b2c timeout payload")
		response.Ack(c)
		return
	}
	if err := h.payout.HandleTimeout(c.Request.Context(), req.ToProviderTimeout()); err != nil {
		h.log.Error().Err(err).Msg("b2c timeout processing failed")
	}
	response.Ack(c)
}
