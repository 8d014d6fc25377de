package x402

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/unibaseio/unibase-x402-bsc/evm"
)

// transferWithAuthorizationTypes is the ERC-3009 EIP-712 type table. The
// field order and types are fixed by the token contracts; changing them
// breaks signature verification on-chain.
var transferWithAuthorizationTypes = map[string][]evm.TypedDataField{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"TransferWithAuthorization": {
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "validAfter", Type: "uint256"},
		{Name: "validBefore", Type: "uint256"},
		{Name: "nonce", Type: "bytes32"},
	},
}

// AuthorizationOption injects the timestamp or nonce used when building
// an authorization. Production callers use the defaults (real clock,
// crypto/rand); tests inject fixed values for determinism.
type AuthorizationOption func(*authorizationParams)

type authorizationParams struct {
	now      int64
	hasNow   bool
	nonce    [32]byte
	hasNonce bool
}

// WithNow fixes the "now" UNIX timestamp the validity window is derived
// from.
func WithNow(now int64) AuthorizationOption {
	return func(p *authorizationParams) {
		p.now = now
		p.hasNow = true
	}
}

// WithNonce fixes the 32-byte authorization nonce.
func WithNonce(nonce [32]byte) AuthorizationOption {
	return func(p *authorizationParams) {
		p.nonce = nonce
		p.hasNonce = true
	}
}

// BuildAuthorization constructs and signs a fresh ERC-3009
// TransferWithAuthorization for the configured payment. The validity
// window opens BackdateSeconds before now (tolerating clock skew between
// payer and chain) and closes MaxTimeoutSeconds after now. Each call
// produces a single-use authorization; it is never persisted or reused.
func BuildAuthorization(cfg *PaymentConfig, opts ...AuthorizationOption) (*ExactEvmPayload, error) {
	var params authorizationParams
	for _, opt := range opts {
		opt(&params)
	}

	now := params.now
	if !params.hasNow {
		now = time.Now().Unix()
	}
	nonce := params.nonce
	if !params.hasNonce {
		var err error
		nonce, err = evm.NewNonce()
		if err != nil {
			return nil, err
		}
	}

	validAfter := now - int64(cfg.BackdateSeconds)
	validBefore := now + int64(cfg.MaxTimeoutSeconds)

	signer, err := evm.NewSigner(cfg.PayerPrivateKey)
	if err != nil {
		return nil, err
	}

	domain := evm.TypedDataDomain{
		Name:              cfg.TokenName,
		Version:           cfg.TokenVersion,
		ChainID:           big.NewInt(cfg.ChainID),
		VerifyingContract: cfg.AssetAddress,
	}
	message := map[string]interface{}{
		"from":        cfg.PayerAddress,
		"to":          cfg.ReceiverAddress,
		"value":       new(big.Int).Set(cfg.AmountBaseUnits),
		"validAfter":  big.NewInt(validAfter),
		"validBefore": big.NewInt(validBefore),
		"nonce":       nonce[:],
	}

	signature, err := signer.SignTypedData(
		domain, transferWithAuthorizationTypes, "TransferWithAuthorization", message)
	if err != nil {
		return nil, fmt.Errorf("failed to sign authorization: %w", err)
	}

	return &ExactEvmPayload{
		Signature: hexutil.Encode(signature),
		Authorization: &ExactEvmAuthorization{
			From:        cfg.PayerAddress,
			To:          cfg.ReceiverAddress,
			Value:       cfg.AmountBaseUnitsString(),
			ValidAfter:  strconv.FormatInt(validAfter, 10),
			ValidBefore: strconv.FormatInt(validBefore, 10),
			Nonce:       hexutil.Encode(nonce[:]),
		},
	}, nil
}

// BuildPaymentPayload wraps a signed authorization in the scheme-level
// envelope submitted to /verify and /settle.
func BuildPaymentPayload(cfg *PaymentConfig, opts ...AuthorizationOption) (*PaymentPayload, error) {
	payload, err := BuildAuthorization(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &PaymentPayload{
		X402Version: X402Version,
		Scheme:      SchemeExact,
		Network:     cfg.Network,
		Payload:     payload,
	}, nil
}

// BuildPaymentRequest builds the full facilitator request body: the
// payment payload plus the requirements projection.
func BuildPaymentRequest(cfg *PaymentConfig, opts ...AuthorizationOption) (*PaymentRequest, error) {
	payload, err := BuildPaymentPayload(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &PaymentRequest{
		X402Version:         X402Version,
		PaymentPayload:      payload,
		PaymentRequirements: cfg.PaymentRequirements(),
	}, nil
}
