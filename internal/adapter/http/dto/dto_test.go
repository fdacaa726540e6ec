package dto

import (
	"encoding/json"
	"testing"
	"time"

	"sacco-ledger/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"100", 10_000, false},
		{"100.50", 10_050, false},
		{"100.5", 10_050, false},
		{"0.01", 1, false},
		{" 250 ", 25_000, false},
		{"100.505", 0, true}, // sub-cent precision
		{"-100", 0, true},
		{"", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseTransTime(t *testing.T) {
	// Wall-clock EAT with no zone marker, normalized to UTC.
	got, err := ParseTransTime("20260817143000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 17, 11, 30, 0, 0, time.UTC), got)

	_, err = ParseTransTime("not-a-time")
	assert.Error(t, err)
}

func TestC2BNotification_ToInboundEvent(t *testing.T) {
	n := C2BNotification{
		TransactionType:   "Pay Bill",
		TransID:           "TJ45HK921X",
		TransTime:         "20260817143000",
		TransAmount:       "150.00",
		BusinessShortCode: "600123",
		BillRefNumber:     "MTU0012",
		MSISDN:            "254712345678",
	}
	raw := []byte(`{"TransID":"TJ45HK921X"}`)

	ev := n.ToInboundEvent(true, raw)
	assert.Equal(t, domain.ChannelC2B, ev.Channel)
	assert.Equal(t, "TJ45HK921X", ev.Receipt)
	assert.Equal(t, int64(15_000), ev.Amount)
	assert.Equal(t, "600123", ev.Paybill)
	assert.Equal(t, "MTU0012", ev.AccountRef)
	assert.True(t, ev.SecretOK)
	assert.Equal(t, raw, ev.Raw)
	assert.Equal(t, "TJ45HK921X", ev.ExternalKey())
}

func TestC2BNotification_ToInboundEvent_BadAmount(t *testing.T) {
	n := C2BNotification{TransID: "TJ45HK921X", TransAmount: "garbage"}

	// Parse failures never drop the delivery; the pipeline quarantines
	// the zero amount instead.
	ev := n.ToInboundEvent(true, nil)
	assert.Equal(t, int64(0), ev.Amount)
}

func TestSTKCallback_ToInboundEvent(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 150.00},
						{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`)

	var cb STKCallback
	require.NoError(t, json.Unmarshal(payload, &cb))
	require.True(t, cb.Success())

	ev := cb.ToInboundEvent("600123", "MTU0012", true, payload)
	assert.Equal(t, domain.ChannelSTK, ev.Channel)
	assert.Equal(t, "ws_CO_191220191020363925", ev.CheckoutID)
	assert.Equal(t, "NLJ7RT61SV", ev.Receipt)
	assert.Equal(t, int64(15_000), ev.Amount)
	assert.Equal(t, "254712345678", ev.SenderMSISDN)
	assert.Equal(t, "MTU0012", ev.AccountRef)
	// The receipt wins as the dedup key once known.
	assert.Equal(t, "NLJ7RT61SV", ev.ExternalKey())
}

func TestSTKCallback_ToInboundEvent_NoMetadata(t *testing.T) {
	payload := []byte(`{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 0,
				"ResultDesc": "ok"
			}
		}
	}`)

	var cb STKCallback
	require.NoError(t, json.Unmarshal(payload, &cb))

	// Still keyed on the checkout id; the zero amount quarantines.
	ev := cb.ToInboundEvent("600123", "", true, payload)
	assert.Equal(t, "", ev.Receipt)
	assert.Equal(t, int64(0), ev.Amount)
	assert.Equal(t, "ws_CO_191220191020363925", ev.ExternalKey())
}

func TestB2CResultCallback_ToProviderResult(t *testing.T) {
	payload := []byte(`{
		"Result": {
			"ResultType": 0,
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"OriginatorConversationID": "po-6f4e0b12",
			"ConversationID": "AG_20260817_000012345",
			"TransactionID": "NLJ41HAY6Q"
		}
	}`)

	var cb B2CResultCallback
	require.NoError(t, json.Unmarshal(payload, &cb))

	res := cb.ToProviderResult()
	assert.True(t, res.Success)
	assert.Equal(t, "po-6f4e0b12", res.RequestID)
	assert.Equal(t, "AG_20260817_000012345", res.ConversationID)
	assert.Equal(t, "NLJ41HAY6Q", res.Receipt)
}

func TestB2CResultCallback_Failure(t *testing.T) {
	payload := []byte(`{"Result": {"ResultCode": 2001, "ResultDesc": "The initiator information is invalid."}}`)

	var cb B2CResultCallback
	require.NoError(t, json.Unmarshal(payload, &cb))

	res := cb.ToProviderResult()
	assert.False(t, res.Success)
	assert.Equal(t, 2001, res.ResultCode)
}
