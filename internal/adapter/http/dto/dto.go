package dto

import (
	"encoding/json"
	"time"

	"sacco-ledger/internal/core/domain"
	"sacco-ledger/internal/core/ports"
)

// C2BNotification is the loose payload the provider posts to the C2B
// validation and confirmation URLs. Amounts and timestamps arrive as
// strings; nothing here is trusted past the parse boundary.
type C2BNotification struct {
	TransactionType   string `json:"TransactionType"`
	TransID           string `json:"TransID"`
	TransTime         string `json:"TransTime"`  // yyyyMMddHHmmss
	TransAmount       string `json:"TransAmount"` // decimal string in major units
	BusinessShortCode string `json:"BusinessShortCode"`
	BillRefNumber     string `json:"BillRefNumber"`
	InvoiceNumber     string `json:"InvoiceNumber"`
	MSISDN            string `json:"MSISDN"`
	FirstName         string `json:"FirstName"`
}

// ToInboundEvent normalizes the notification into the strict internal
// shape. Parse failures surface as zero values the pipeline quarantines,
// never as a rejected delivery.
func (n *C2BNotification) ToInboundEvent(secretOK bool, raw []byte) ports.InboundEvent {
	amount, err := ParseAmount(n.TransAmount)
	if err != nil {
		amount = 0 // quarantined downstream as INVALID_AMOUNT
	}
	occurred, err := ParseTransTime(n.TransTime)
	if err != nil {
		occurred = time.Now().UTC()
	}
	return ports.InboundEvent{
		Channel:      domain.ChannelC2B,
		Receipt:      n.TransID,
		Amount:       amount,
		SenderMSISDN: n.MSISDN,
		Paybill:      n.BusinessShortCode,
		AccountRef:   n.BillRefNumber,
		OccurredAt:   occurred,
		SecretOK:     secretOK,
		Raw:          raw,
	}
}

// STKCallback is the provider's push-payment result envelope.
type STKCallback struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []MetadataItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// MetadataItem is one name/value pair in the STK callback metadata.
type MetadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// Success reports whether the push payment completed.
func (c *STKCallback) Success() bool {
	return c.Body.StkCallback.ResultCode == 0
}

// ToInboundEvent normalizes a successful STK callback. The receipt and
// amount live in the metadata items; a callback without them still
// produces an event keyed on the checkout id.
func (c *STKCallback) ToInboundEvent(paybill, accountRef string, secretOK bool, raw []byte) ports.InboundEvent {
	ev := ports.InboundEvent{
		Channel:    domain.ChannelSTK,
		CheckoutID: c.Body.StkCallback.CheckoutRequestID,
		Paybill:    paybill,
		AccountRef: accountRef,
		OccurredAt: time.Now().UTC(),
		SecretOK:   secretOK,
		Raw:        raw,
	}
	for _, item := range c.Body.StkCallback.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			var s string
			if json.Unmarshal(item.Value, &s) == nil {
				ev.Receipt = s
			}
		case "Amount":
			var f float64
			if json.Unmarshal(item.Value, &f) == nil {
				ev.Amount = int64(f*100 + 0.5)
			}
		case "PhoneNumber":
			var f float64
			if json.Unmarshal(item.Value, &f) == nil {
				ev.SenderMSISDN = formatMSISDN(f)
			}
			var s string
			if json.Unmarshal(item.Value, &s) == nil {
				ev.SenderMSISDN = s
			}
		case "AccountReference":
			var s string
			if json.Unmarshal(item.Value, &s) == nil {
				ev.AccountRef = s
			}
		}
	}
	return ev
}

// B2CResultCallback is the provider's disbursement result envelope.
type B2CResultCallback struct {
	Result struct {
		ResultType               int    `json:"ResultType"`
		ResultCode               int    `json:"ResultCode"`
		ResultDesc               string `json:"ResultDesc"`
		OriginatorConversationID string `json:"OriginatorConversationID"`
		ConversationID           string `json:"ConversationID"`
		TransactionID            string `json:"TransactionID"`
	} `json:"Result"`
}

// ToProviderResult normalizes the callback for the payout state machine.
func (c *B2CResultCallback) ToProviderResult() ports.ProviderResult {
	return ports.ProviderResult{
		RequestID:      c.Result.OriginatorConversationID,
		ConversationID: c.Result.ConversationID,
		Success:        c.Result.ResultCode == 0,
		ResultCode:     c.Result.ResultCode,
		ResultDesc:     c.Result.ResultDesc,
		Receipt:        c.Result.TransactionID,
	}
}

// B2CTimeoutCallback is the provider's queue-timeout envelope.
type B2CTimeoutCallback struct {
	Result struct {
		OriginatorConversationID string `json:"OriginatorConversationID"`
		ConversationID           string `json:"ConversationID"`
	} `json:"Result"`
}

// ToProviderTimeout normalizes the callback.
func (c *B2CTimeoutCallback) ToProviderTimeout() ports.ProviderTimeout {
	return ports.ProviderTimeout{
		RequestID:      c.Result.OriginatorConversationID,
		ConversationID: c.Result.ConversationID,
	}
}

// ---- Admin requests ----

// ResolvePaymentRequest is the body for a manual payment resolution.
type ResolvePaymentRequest struct {
	Action   string  `json:"action" binding:"required,oneof=CREDIT REJECT"`
	WalletID *string `json:"wallet_id,omitempty" binding:"omitempty,uuid"`
}

// BuildBatchRequest is the body for creating a payout batch.
type BuildBatchRequest struct {
	SaccoID     string `json:"sacco_id" binding:"required,uuid"`
	PeriodStart string `json:"period_start" binding:"required"` // RFC3339
	PeriodEnd   string `json:"period_end" binding:"required"`   // RFC3339
}

// CancelItemRequest is the body for cancelling a payout item.
type CancelItemRequest struct {
	Reason string `json:"reason" binding:"max=200"`
}

// CreateWalletRequest is the body for registering a wallet.
type CreateWalletRequest struct {
	OwnerType   string `json:"owner_type" binding:"required,oneof=VEHICLE SACCO"`
	OwnerID     string `json:"owner_id" binding:"required,uuid"`
	SaccoID     string `json:"sacco_id" binding:"required,uuid"`
	Kind        string `json:"kind" binding:"required,oneof=VEHICLE_COLLECTION SACCO_FEE SACCO_LOAN SACCO_SAVINGS"`
	AccountCode string `json:"account_code" binding:"required,min=4,max=20,safe_id"`
}

// PaymentListResponse wraps a paginated payment list.
type PaymentListResponse struct {
	Payments []domain.InboundPayment `json:"payments"`
	Total    int64                   `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
}
