package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known test key, never used on a real network.
const (
	testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func testTypes() map[string][]TypedDataField {
	return map[string][]TypedDataField{
		"TransferWithAuthorization": {
			{Name: "from", Type: "address"},
			{Name: "to", Type: "address"},
			{Name: "value", Type: "uint256"},
			{Name: "validAfter", Type: "uint256"},
			{Name: "validBefore", Type: "uint256"},
			{Name: "nonce", Type: "bytes32"},
		},
	}
}

func testMessage() (TypedDataDomain, map[string]interface{}) {
	domain := TypedDataDomain{
		Name:              "Wrapped USDC",
		Version:           "2",
		ChainID:           big.NewInt(56),
		VerifyingContract: "0xf3A3E4D9c163251124229Da6DC9C98D889647804",
	}
	nonce := make([]byte, 32)
	nonce[31] = 0x01
	message := map[string]interface{}{
		"from":        testAddress,
		"to":          "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"value":       big.NewInt(100000000000000000),
		"validAfter":  big.NewInt(1700000000 - 600),
		"validBefore": big.NewInt(1700000000 + 600),
		"nonce":       nonce,
	}
	return domain, message
}

func TestNewSigner(t *testing.T) {
	signer, err := NewSigner(testPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, testAddress, signer.Address())

	// 0x prefix is optional
	signer, err = NewSigner(testPrivateKey[2:])
	require.NoError(t, err)
	assert.Equal(t, testAddress, signer.Address())
}

func TestNewSignerInvalidKey(t *testing.T) {
	_, err := NewSigner("0xzz")
	assert.Error(t, err)

	_, err = NewSigner("")
	assert.Error(t, err)
}

func TestSignTypedData(t *testing.T) {
	signer, err := NewSigner(testPrivateKey)
	require.NoError(t, err)

	domain, message := testMessage()
	signature, err := signer.SignTypedData(domain, testTypes(), "TransferWithAuthorization", message)
	require.NoError(t, err)

	require.Len(t, signature, 65)
	assert.Contains(t, []byte{27, 28}, signature[64])

	// The signature must recover to the signer's address.
	digest, err := HashTypedData(domain, testTypes(), "TransferWithAuthorization", message)
	require.NoError(t, err)

	recoverable := make([]byte, 65)
	copy(recoverable, signature)
	recoverable[64] -= 27
	pubKey, err := crypto.SigToPub(digest, recoverable)
	require.NoError(t, err)
	assert.Equal(t, testAddress, crypto.PubkeyToAddress(*pubKey).Hex())
}

func TestSignTypedDataDeterministic(t *testing.T) {
	signer, err := NewSigner(testPrivateKey)
	require.NoError(t, err)

	domain, message := testMessage()
	first, err := signer.SignTypedData(domain, testTypes(), "TransferWithAuthorization", message)
	require.NoError(t, err)
	second, err := signer.SignTypedData(domain, testTypes(), "TransferWithAuthorization", message)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestHashTypedDataDomainSensitivity(t *testing.T) {
	domain, message := testMessage()
	base, err := HashTypedData(domain, testTypes(), "TransferWithAuthorization", message)
	require.NoError(t, err)
	require.Len(t, base, 32)

	// A different chain id must change the digest.
	domain.ChainID = big.NewInt(97)
	other, err := HashTypedData(domain, testTypes(), "TransferWithAuthorization", message)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)
}

func TestNewNonce(t *testing.T) {
	first, err := NewNonce()
	require.NoError(t, err)
	second, err := NewNonce()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
