package x402

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/unibaseio/unibase-x402-bsc/env"
	"github.com/unibaseio/unibase-x402-bsc/evm"
)

// Environment keys recognized by ConfigFromValues.
const (
	KeyFacilitatorURL  = "X402_FACILITATOR_URL"
	KeyPayerPrivateKey = "X402_PAYER_PRIVATE_KEY"
	KeyPayerAddress    = "X402_PAYER_ADDRESS"
	KeyReceiverAddress = "X402_RECEIVER_ADDRESS"
	KeyPaymentAmount   = "X402_PAYMENT_AMOUNT"
	KeyTimeoutSeconds  = "X402_PAYMENT_TIMEOUT_SECONDS"
	KeyBackdateSeconds = "X402_PAYMENT_BACKDATE_SECONDS"
	KeyResource        = "X402_PAYMENT_RESOURCE"
	KeyDescription     = "X402_PAYMENT_DESCRIPTION"
	KeyMimeType        = "X402_PAYMENT_MIME_TYPE"
	KeyTokenDecimals   = "X402_PAYMENT_TOKEN_DECIMALS"
	KeyAssetAddress    = "X402_PAYMENT_ASSET_ADDRESS"
	KeyTokenName       = "X402_PAYMENT_TOKEN_NAME"
	KeyTokenVersion    = "X402_PAYMENT_TOKEN_VERSION"
	KeyChainID         = "X402_PAYMENT_CHAIN_ID"
	KeyNetwork         = "X402_PAYMENT_NETWORK"
)

// Defaults applied when the corresponding key is absent. Only the payer
// private key and the receiver address are required.
const (
	DefaultFacilitatorURL  = "https://api.x402.unibase.com"
	DefaultAssetAddress    = "0xf3A3E4D9c163251124229Da6DC9C98D889647804"
	DefaultAmount          = "0.1"
	DefaultTimeoutSeconds  = 600
	DefaultBackdateSeconds = 600
	DefaultTokenDecimals   = 18
	DefaultChainID         = 56
	DefaultNetwork         = "bsc"
	DefaultTokenName       = "Wrapped USDC"
	DefaultTokenVersion    = "2"
	DefaultResource        = "https://example.com/protected-resource"
	DefaultDescription     = "Example payment for x402-protected resource"
	DefaultMimeType        = "application/json"
)

// PaymentConfig is the normalized, validated payment specification. It is
// built once by ConfigFromValues and never mutated; every payload derived
// from it is a pure function of the config plus per-attempt randomness
// and time.
type PaymentConfig struct {
	FacilitatorURL string

	// PayerPrivateKey is the normalized 0x-prefixed hex key. It must
	// never appear in logs or serialized output.
	PayerPrivateKey string

	// PayerAddress defaults to the address derived from the private key.
	// An explicitly supplied address is normalized but deliberately not
	// cross-checked against the key; a mismatch is rejected downstream by
	// the facilitator or the chain.
	PayerAddress string

	ReceiverAddress string
	AssetAddress    string

	AmountDecimal   decimal.Decimal
	AmountBaseUnits *big.Int

	Resource    string
	Description string
	MimeType    string

	MaxTimeoutSeconds int
	BackdateSeconds   int

	ChainID int64
	Network string

	TokenName    string
	TokenVersion string
}

// ConfigFromValues validates and canonicalizes a resolved string-keyed
// mapping (see package env) into a PaymentConfig. It has no side effects
// and never reads ambient process state.
func ConfigFromValues(values map[string]string) (*PaymentConfig, error) {
	facilitatorURL := strings.TrimRight(
		getValue(values, KeyFacilitatorURL, DefaultFacilitatorURL), "/")

	rawKey, ok := values[KeyPayerPrivateKey]
	if !ok {
		return nil, &ConfigError{Key: KeyPayerPrivateKey, Reason: "must be provided"}
	}
	privateKey, err := normalizePrivateKey(rawKey)
	if err != nil {
		return nil, err
	}
	signer, err := evm.NewSigner(privateKey)
	if err != nil {
		return nil, &ConfigError{Key: KeyPayerPrivateKey, Reason: "is not a valid secp256k1 key"}
	}

	payerAddress := signer.Address()
	if raw, ok := values[KeyPayerAddress]; ok {
		payerAddress, err = normalizeAddress(raw, KeyPayerAddress)
		if err != nil {
			return nil, err
		}
	}

	receiverRaw, ok := values[KeyReceiverAddress]
	if !ok {
		return nil, &ConfigError{Key: KeyReceiverAddress, Reason: "must be provided"}
	}
	receiverAddress, err := normalizeAddress(receiverRaw, KeyReceiverAddress)
	if err != nil {
		return nil, err
	}

	assetAddress, err := normalizeAddress(
		getValue(values, KeyAssetAddress, DefaultAssetAddress), KeyAssetAddress)
	if err != nil {
		return nil, err
	}

	amountRaw := getValue(values, KeyPaymentAmount, DefaultAmount)
	amountDecimal, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, &ConfigError{
			Key:    KeyPaymentAmount,
			Reason: fmt.Sprintf("must be a valid decimal number, got %q", amountRaw),
		}
	}

	decimals, err := intValue(values, KeyTokenDecimals, DefaultTokenDecimals)
	if err != nil {
		return nil, err
	}
	if decimals < 0 {
		return nil, &ConfigError{Key: KeyTokenDecimals, Reason: "must not be negative"}
	}

	amountBaseUnits, err := toBaseUnits(amountDecimal, decimals)
	if err != nil {
		return nil, err
	}

	maxTimeoutSeconds, err := intValue(values, KeyTimeoutSeconds, DefaultTimeoutSeconds)
	if err != nil {
		return nil, err
	}
	backdateSeconds, err := intValue(values, KeyBackdateSeconds, DefaultBackdateSeconds)
	if err != nil {
		return nil, err
	}
	chainID, err := intValue(values, KeyChainID, DefaultChainID)
	if err != nil {
		return nil, err
	}

	return &PaymentConfig{
		FacilitatorURL:    facilitatorURL,
		PayerPrivateKey:   privateKey,
		PayerAddress:      payerAddress,
		ReceiverAddress:   receiverAddress,
		AssetAddress:      assetAddress,
		AmountDecimal:     amountDecimal,
		AmountBaseUnits:   amountBaseUnits,
		Resource:          getValue(values, KeyResource, DefaultResource),
		Description:       getValue(values, KeyDescription, DefaultDescription),
		MimeType:          getValue(values, KeyMimeType, DefaultMimeType),
		MaxTimeoutSeconds: maxTimeoutSeconds,
		BackdateSeconds:   backdateSeconds,
		ChainID:           int64(chainID),
		Network:           getValue(values, KeyNetwork, DefaultNetwork),
		TokenName:         getValue(values, KeyTokenName, DefaultTokenName),
		TokenVersion:      getValue(values, KeyTokenVersion, DefaultTokenVersion),
	}, nil
}

// LoadConfig is a convenience wrapper that layers the process
// environment, an env file, and explicit overrides (in increasing
// precedence) before normalizing. Pass an empty envFile to skip file
// loading; environ is usually os.Environ().
func LoadConfig(environ []string, envFile string, overrides map[string]string) (*PaymentConfig, error) {
	values, err := env.Build(env.FromEnviron(environ), envFile, overrides)
	if err != nil {
		return nil, err
	}
	return ConfigFromValues(values)
}

// AmountBaseUnitsString returns the payment amount in base units as a
// decimal string, the form used on the wire.
func (c *PaymentConfig) AmountBaseUnitsString() string {
	return c.AmountBaseUnits.String()
}

// PaymentRequirements projects the config into the requirements object
// sent to the facilitator.
func (c *PaymentConfig) PaymentRequirements() *PaymentRequirements {
	return &PaymentRequirements{
		Scheme:            SchemeExact,
		Network:           c.Network,
		MaxAmountRequired: c.AmountBaseUnitsString(),
		Resource:          c.Resource,
		Description:       c.Description,
		MimeType:          c.MimeType,
		OutputSchema:      nil,
		PayTo:             c.ReceiverAddress,
		MaxTimeoutSeconds: c.MaxTimeoutSeconds,
		Asset:             c.AssetAddress,
		Extra: &PaymentExtra{
			Name:    c.TokenName,
			Version: c.TokenVersion,
		},
	}
}

func normalizePrivateKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", &ConfigError{Key: KeyPayerPrivateKey, Reason: "must not be empty"}
	}
	if !strings.HasPrefix(key, "0x") {
		key = "0x" + key
	}
	if len(key) != 66 {
		return "", &ConfigError{Key: KeyPayerPrivateKey, Reason: "must be 32 bytes (64 hex chars)"}
	}
	return key, nil
}

func normalizeAddress(raw, key string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", &ConfigError{Key: key, Reason: "must not be empty"}
	}
	if !strings.HasPrefix(value, "0x") {
		value = "0x" + value
	}
	if !common.IsHexAddress(value) {
		return "", &ConfigError{Key: key, Reason: "is not a valid EVM address"}
	}
	return common.HexToAddress(value).Hex(), nil
}

// toBaseUnits converts a human-unit decimal amount to integer base units
// (amount * 10^decimals). The scaled value must be an exact integer;
// amounts that would be truncated are rejected rather than rounded.
func toBaseUnits(amount decimal.Decimal, decimals int) (*big.Int, error) {
	scaled := amount.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, &ConfigError{
			Key:    KeyPaymentAmount,
			Reason: fmt.Sprintf("amount %s cannot be represented with %d decimals", amount, decimals),
		}
	}
	units := scaled.BigInt()
	if units.Sign() <= 0 {
		return nil, &ConfigError{Key: KeyPaymentAmount, Reason: "amount must be greater than zero"}
	}
	return units, nil
}

func getValue(values map[string]string, key, fallback string) string {
	if value, ok := values[key]; ok {
		return value
	}
	return fallback
}

func intValue(values map[string]string, key string, fallback int) (int, error) {
	raw, ok := values[key]
	if !ok {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ConfigError{
			Key:    key,
			Reason: fmt.Sprintf("must be a base-10 integer, got %q", raw),
		}
	}
	return parsed, nil
}
