package x402

import (
	"math/big"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unibaseio/unibase-x402-bsc/evm"
)

const testNow = int64(1700000000)

func testNonce() [32]byte {
	var nonce [32]byte
	nonce[31] = 0x2a
	return nonce
}

func testConfig(t *testing.T) *PaymentConfig {
	t.Helper()
	cfg, err := ConfigFromValues(minimalValues())
	require.NoError(t, err)
	return cfg
}

func TestBuildAuthorizationWindow(t *testing.T) {
	cfg := testConfig(t)

	payload, err := BuildAuthorization(cfg, WithNow(testNow), WithNonce(testNonce()))
	require.NoError(t, err)

	auth := payload.Authorization
	require.NotNil(t, auth)
	assert.Equal(t, cfg.PayerAddress, auth.From)
	assert.Equal(t, cfg.ReceiverAddress, auth.To)
	assert.Equal(t, "100000000000000000", auth.Value)
	assert.Equal(t, strconv.FormatInt(testNow-int64(cfg.BackdateSeconds), 10), auth.ValidAfter)
	assert.Equal(t, strconv.FormatInt(testNow+int64(cfg.MaxTimeoutSeconds), 10), auth.ValidBefore)

	nonce := testNonce()
	assert.Equal(t, hexutil.Encode(nonce[:]), auth.Nonce)
}

func TestBuildAuthorizationSerialization(t *testing.T) {
	cfg := testConfig(t)

	payload, err := BuildAuthorization(cfg, WithNow(testNow), WithNonce(testNonce()))
	require.NoError(t, err)

	// 65 signature bytes as 0x-prefixed lowercase hex
	assert.Len(t, payload.Signature, 2+65*2)
	assert.Equal(t, "0x", payload.Signature[:2])
	assert.Equal(t, payload.Signature, "0x"+strings.ToLower(payload.Signature[2:]))

	assert.Len(t, payload.Authorization.Nonce, 2+32*2)
}

func TestBuildAuthorizationDeterministic(t *testing.T) {
	cfg := testConfig(t)

	first, err := BuildAuthorization(cfg, WithNow(testNow), WithNonce(testNonce()))
	require.NoError(t, err)
	second, err := BuildAuthorization(cfg, WithNow(testNow), WithNonce(testNonce()))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildAuthorizationSignatureRecovers(t *testing.T) {
	cfg := testConfig(t)
	nonce := testNonce()

	payload, err := BuildAuthorization(cfg, WithNow(testNow), WithNonce(nonce))
	require.NoError(t, err)

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
		"validAfter":  big.NewInt(testNow - int64(cfg.BackdateSeconds)),
		"validBefore": big.NewInt(testNow + int64(cfg.MaxTimeoutSeconds)),
		"nonce":       nonce[:],
	}
	digest, err := evm.HashTypedData(
		domain, transferWithAuthorizationTypes, "TransferWithAuthorization", message)
	require.NoError(t, err)

	signature, err := hexutil.Decode(payload.Signature)
	require.NoError(t, err)
	require.Len(t, signature, 65)
	signature[64] -= 27

	pubKey, err := crypto.SigToPub(digest, signature)
	require.NoError(t, err)
	assert.Equal(t, cfg.PayerAddress, crypto.PubkeyToAddress(*pubKey).Hex())
}

func TestBuildAuthorizationFreshDefaults(t *testing.T) {
	cfg := testConfig(t)

	first, err := BuildAuthorization(cfg)
	require.NoError(t, err)
	second, err := BuildAuthorization(cfg)
	require.NoError(t, err)

	// Nonces are random per attempt.
	assert.NotEqual(t, first.Authorization.Nonce, second.Authorization.Nonce)

	// The window straddles the current time.
	now := time.Now().Unix()
	validAfter, err := strconv.ParseInt(first.Authorization.ValidAfter, 10, 64)
	require.NoError(t, err)
	validBefore, err := strconv.ParseInt(first.Authorization.ValidBefore, 10, 64)
	require.NoError(t, err)
	assert.Less(t, validAfter, now)
	assert.Greater(t, validBefore, now)
}

func TestBuildPaymentPayload(t *testing.T) {
	cfg := testConfig(t)

	payload, err := BuildPaymentPayload(cfg, WithNow(testNow), WithNonce(testNonce()))
	require.NoError(t, err)

	assert.Equal(t, X402Version, payload.X402Version)
	assert.Equal(t, SchemeExact, payload.Scheme)
	assert.Equal(t, cfg.Network, payload.Network)
	require.NotNil(t, payload.Payload)
	require.NotNil(t, payload.Payload.Authorization)
}

func TestBuildPaymentRequest(t *testing.T) {
	cfg := testConfig(t)

	request, err := BuildPaymentRequest(cfg, WithNow(testNow), WithNonce(testNonce()))
	require.NoError(t, err)

	assert.Equal(t, X402Version, request.X402Version)
	require.NotNil(t, request.PaymentPayload)
	require.NotNil(t, request.PaymentRequirements)
	assert.Equal(t, cfg.AmountBaseUnitsString(), request.PaymentRequirements.MaxAmountRequired)
	assert.Equal(t, request.PaymentPayload.Network, request.PaymentRequirements.Network)
}
