package x402

import "encoding/json"

// X402Version is the protocol version spoken by the Unibase facilitator.
const X402Version = 1

// SchemeExact is the only payment scheme this client produces: a signed
// authorization for an exact token amount.
const SchemeExact = "exact"

// PaymentRequirements describes the payment a resource server accepts.
// It is sent verbatim to the facilitator alongside the signed payload.
type PaymentRequirements struct {
	Scheme            string        `json:"scheme"`
	Network           string        `json:"network"`
	MaxAmountRequired string        `json:"maxAmountRequired"`
	Resource          string        `json:"resource"`
	Description       string        `json:"description"`
	MimeType          string        `json:"mimeType"`
	OutputSchema      any           `json:"outputSchema"`
	PayTo             string        `json:"payTo"`
	MaxTimeoutSeconds int           `json:"maxTimeoutSeconds"`
	Asset             string        `json:"asset"`
	Extra             *PaymentExtra `json:"extra"`
}

// PaymentExtra carries the token's EIP-712 domain name and version. The
// facilitator needs both to reconstruct the digest the payer signed.
type PaymentExtra struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ExactEvmAuthorization is the wire form of an ERC-3009
// TransferWithAuthorization message. All integers are decimal strings and
// the nonce is 0x-prefixed hex, matching the facilitator's JSON schema.
type ExactEvmAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// ExactEvmPayload pairs an authorization with its EIP-712 signature
// (65 bytes, 0x-prefixed hex).
type ExactEvmPayload struct {
	Signature     string                 `json:"signature"`
	Authorization *ExactEvmAuthorization `json:"authorization"`
}

// PaymentPayload is the scheme-level envelope around a signed authorization.
type PaymentPayload struct {
	X402Version int              `json:"x402Version"`
	Scheme      string           `json:"scheme"`
	Network     string           `json:"network"`
	Payload     *ExactEvmPayload `json:"payload"`
}

// PaymentRequest is the full body POSTed to /verify and /settle.
type PaymentRequest struct {
	X402Version         int                  `json:"x402Version"`
	PaymentPayload      *PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements *PaymentRequirements `json:"paymentRequirements"`
}

// VerifyResponse is the facilitator's verdict on a payment payload.
// Raw retains the complete response body for auditing.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// SettlementResult is the terminal outcome of one settle call (or of a
// verify-only run, in which case Transaction is empty). Raw retains the
// facilitator's full response; a Success of false is reported here rather
// than as an error.
type SettlementResult struct {
	Success     bool            `json:"success"`
	Network     string          `json:"network,omitempty"`
	Transaction string          `json:"transaction,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}
