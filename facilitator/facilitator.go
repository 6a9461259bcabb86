// Package facilitator implements the mock payment-processing endpoint the
// demo flow talks to, plus a typed client for it. The mock accepts every
// payment unconditionally; callers needing negative paths simulate failures
// themselves.
package facilitator

// PaymentRequest is the body accepted by every POST endpoint.
type PaymentRequest struct {
	Amount      float64        `json:"amount"`
	Currency    string         `json:"currency"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	FromAddress string         `json:"from_address,omitempty"`
	Network     string         `json:"network,omitempty"`
}

// PaymentResponse is returned by /create_payment and /settle; the request
// body is echoed back under Received.
type PaymentResponse struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Received PaymentRequest `json:"received"`
}

// VerifyResponse is returned by /verify.
type VerifyResponse struct {
	OK       bool           `json:"ok"`
	Message  string         `json:"message"`
	Received PaymentRequest `json:"received"`
}

// ListResponse is returned by /list.
type ListResponse struct {
	Networks []string `json:"networks"`
}

// PaymentResponseHeader carries the payment id on /create_payment and /settle
// responses.
const PaymentResponseHeader = "X-PAYMENT-RESPONSE"

// DefaultNetworks is the network list the mock advertises.
var DefaultNetworks = []string{"base-sepolia", "base", "polygon-amoy", "solana-devnet"}
