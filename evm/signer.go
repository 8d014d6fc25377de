// Package evm provides the ECDSA key handling and EIP-712 typed-data
// signing used to authorize token transfers on BNB Smart Chain.
package evm

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// TypedDataDomain is the EIP-712 signing domain. For ERC-3009 transfers it
// must match the token contract's own domain exactly or the signature is
// rejected on-chain.
type TypedDataDomain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract string
}

// TypedDataField is a single field of an EIP-712 struct type.
type TypedDataField struct {
	Name string
	Type string
}

// Signer signs EIP-712 typed data with a secp256k1 private key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded private key, with or
// without a 0x prefix.
func NewSigner(privateKeyHex string) (*Signer, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// Address returns the signer's EIP-55 checksummed address.
func (s *Signer) Address() string {
	return s.address.Hex()
}

// SignTypedData produces a 65-byte (r, s, v) signature over the EIP-712
// digest of domain and message, with v encoded as 27 or 28.
func (s *Signer) SignTypedData(
	domain TypedDataDomain,
	types map[string][]TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	digest, err := HashTypedData(domain, types, primaryType, message)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	// recovery id 0/1 -> 27/28
	signature[64] += 27

	return signature, nil
}

// NewNonce returns 32 cryptographically random bytes. Each authorization
// must carry a fresh nonce; the nonce and the validity window are the only
// replay protection the scheme has.
func NewNonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return [32]byte{}, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}
