package payment

import (
	"encoding/json"

	errors "github.com/my-other-app/moa-backend/internal"
	"github.com/my-other-app/moa-backend/internal/gateway"
)

// Recognized gateway payment methods.
const (
	MethodUPI        = "upi"
	MethodNetbanking = "netbanking"
	MethodCard       = "card"
	MethodWallet     = "wallet"
)

// normalizeMethodDetails flattens the provider's method-specific payload into
// one shape per method. This is the only place in the codebase that knows the
// provider's nested field layout; an unrecognized method is rejected rather
// than stored blind.
func normalizeMethodDetails(method string, raw gateway.RawPayment) (json.RawMessage, error) {
	var details map[string]interface{}

	switch method {
	case MethodUPI:
		details = raw.Map("upi")

	case MethodNetbanking:
		details = raw.Map("acquirer_data")
		if details == nil {
			details = map[string]interface{}{}
		}
		// The bank code lives in acquirer_data or nowhere; the key is always
		// present in the stored details, null when the provider omitted it.
		if _, ok := details["bank"]; !ok {
			details["bank"] = nil
		}

	case MethodCard:
		details = raw.Map("card")
		if details == nil {
			details = raw.Map("acquirer_data")
		}

	case MethodWallet:
		details = raw.Map("acquirer_data")
		if details == nil {
			details = map[string]interface{}{}
		}
		details["wallet"] = raw["wallet"]

	default:
		return nil, errors.NewValidationFieldError("payment_method", "Invalid payment method", errors.ErrCodeInvalidMethod)
	}

	if details == nil {
		details = map[string]interface{}{}
	}

	encoded, err := json.Marshal(details)
	if err != nil {
		return nil, errors.NewInternalError("failed to encode payment details", err)
	}
	return encoded, nil
}
