package handler

import (
	"strconv"
	"time"

	"sacco-ledger/internal/adapter/http/dto"
	"sacco-ledger/internal/adapter/http/middleware"
	"sacco-ledger/internal/core/domain"
	"sacco-ledger/internal/core/ports"
	"sacco-ledger/pkg/apperror"
	"sacco-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdminHandler serves the operator console API.
type AdminHandler struct {
	intake         ports.IntakeService
	payout         ports.PayoutService
	walletRepo     ports.WalletRepository
	paymentRepo    ports.PaymentRepository
	quarantineRepo ports.QuarantineRepository
	log            zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	intake ports.IntakeService,
	payout ports.PayoutService,
	walletRepo ports.WalletRepository,
	paymentRepo ports.PaymentRepository,
	quarantineRepo ports.QuarantineRepository,
	log zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		intake:         intake,
		payout:         payout,
		walletRepo:     walletRepo,
		paymentRepo:    paymentRepo,
		quarantineRepo: quarantineRepo,
		log:            log,
	}
}

func actor(c *gin.Context) string {
	return c.GetString(middleware.CtxActor)
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation("Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// ---- Payments ----

// ListPayments handles GET /payments with status/channel/time filters.
func (h *AdminHandler) ListPayments(c *gin.Context) {
	params := ports.PaymentListParams{Page: 1, PageSize: 50}

	if s := c.Query("status"); s != "" {
		st := domain.PaymentStatus(s)
		params.Status = &st
	}
	if s := c.Query("channel"); s != "" {
		ch := domain.PaymentChannel(s)
		params.Channel = &ch
	}
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			response.Error(c, apperror.Validation("Invalid from timestamp"))
			return
		}
		params.From = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			response.Error(c, apperror.Validation("Invalid to timestamp"))
			return
		}
		params.To = &t
	}
	if s := c.Query("page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			params.Page = n
		}
	}
	if s := c.Query("page_size"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 200 {
			params.PageSize = n
		}
	}

	payments, total, err := h.paymentRepo.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	response.OK(c, dto.PaymentListResponse{
		Payments: payments,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	})
}

// GetPayment handles GET /payments/:id.
func (h *AdminHandler) GetPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.paymentRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	if p == nil {
		response.Error(c, apperror.ErrNotFound("Payment"))
		return
	}
	response.OK(c, p)
}

// GetPaymentRaw handles GET /payments/:id/raw, returning the provider
// payload as delivered.
func (h *AdminHandler) GetPaymentRaw(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.paymentRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	if p == nil {
		response.Error(c, apperror.ErrNotFound("Payment"))
		return
	}
	c.Data(200, "application/json", p.RawPayload)
}

// ResolvePayment handles POST /payments/:id/resolve.
func (h *AdminHandler) ResolvePayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ResolvePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	resolveReq := ports.ResolveRequest{
		PaymentID: id,
		Action:    domain.ResolutionAction(req.Action),
		Actor:     actor(c),
		ClientIP:  c.ClientIP(),
	}
	if req.WalletID != nil {
		wid, err := uuid.Parse(*req.WalletID)
		if err != nil {
			response.Error(c, apperror.Validation("Invalid wallet_id"))
			return
		}
		resolveReq.WalletID = &wid
	}

	p, err := h.intake.Resolve(c.Request.Context(), resolveReq)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// ListQuarantine handles GET /quarantine with an optional resolved filter.
func (h *AdminHandler) ListQuarantine(c *gin.Context) {
	var resolved *bool
	if s := c.Query("resolved"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			response.Error(c, apperror.Validation("Invalid resolved filter"))
			return
		}
		resolved = &b
	}
	records, err := h.quarantineRepo.List(c.Request.Context(), resolved)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	response.OK(c, records)
}

// ---- Wallets ----

// CreateWallet handles POST /wallets.
func (h *AdminHandler) CreateWallet(c *gin.Context) {
	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if !domain.ValidAccountCode(req.AccountCode) {
		response.Error(c, apperror.Validation("Account code check digit is invalid"))
		return
	}
	ownerID, _ := uuid.Parse(req.OwnerID)
	saccoID, _ := uuid.Parse(req.SaccoID)

	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:          uuid.New(),
		OwnerType:   domain.WalletOwnerType(req.OwnerType),
		OwnerID:     ownerID,
		SaccoID:     saccoID,
		Kind:        domain.WalletKind(req.Kind),
		AccountCode: req.AccountCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.walletRepo.Create(c.Request.Context(), w); err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	response.Created(c, w)
}

// GetWallet handles GET /wallets/:id.
func (h *AdminHandler) GetWallet(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	w, err := h.walletRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	if w == nil {
		response.Error(c, apperror.ErrNotFound("Wallet"))
		return
	}
	response.OK(c, w)
}

// ListWalletEntries handles GET /wallets/:id/entries.
func (h *AdminHandler) ListWalletEntries(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	entries, err := h.walletRepo.ListEntries(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	response.OK(c, entries)
}

// ListSaccoWallets handles GET /saccos/:id/wallets.
func (h *AdminHandler) ListSaccoWallets(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	wallets, err := h.walletRepo.ListBySacco(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.ErrDatabaseError(err))
		return
	}
	response.OK(c, wallets)
}

// ---- Payouts ----

// BuildBatch handles POST /batches.
func (h *AdminHandler) BuildBatch(c *gin.Context) {
	var req dto.BuildBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	saccoID, _ := uuid.Parse(req.SaccoID)
	start, err := time.Parse(time.RFC3339, req.PeriodStart)
	if err != nil {
		response.Error(c, apperror.Validation("Invalid period_start"))
		return
	}
	end, err := time.Parse(time.RFC3339, req.PeriodEnd)
	if err != nil {
		response.Error(c, apperror.Validation("Invalid period_end"))
		return
	}
	if !end.After(start) {
		response.Error(c, apperror.Validation("period_end must be after period_start"))
		return
	}

	detail, err := h.payout.BuildBatch(c.Request.Context(), ports.BuildBatchRequest{
		SaccoID:     saccoID,
		PeriodStart: start,
		PeriodEnd:   end,
		Actor:       actor(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// SubmitBatch handles POST /batches/:id/submit.
func (h *AdminHandler) SubmitBatch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.payout.SubmitBatch(c.Request.Context(), id, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// GetBatch handles GET /batches/:id.
func (h *AdminHandler) GetBatch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.payout.GetBatchDetail(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// RetryItem handles POST /items/:id/retry.
func (h *AdminHandler) RetryItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.payout.RetryItem(c.Request.Context(), id, actor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"item_id": id})
}

// CancelItem handles POST /items/:id/cancel.
func (h *AdminHandler) CancelItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if err := h.payout.CancelItem(c.Request.Context(), id, req.Reason, actor(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"item_id": id})
}
