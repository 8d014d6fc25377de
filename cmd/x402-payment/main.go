// x402-payment executes a single x402 payment flow against a facilitator.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	x402 "github.com/unibaseio/unibase-x402-bsc"
)

// overrideFlags maps CLI override flags to environment keys, mirroring
// the X402_* configuration surface.
var overrideFlags = []struct {
	name  string
	key   string
	usage string
}{
	{"payer-private-key", x402.KeyPayerPrivateKey, "payer private key (hex, 0x prefix optional)"},
	{"payer-address", x402.KeyPayerAddress, "payer address (derived from the private key by default)"},
	{"receiver-address", x402.KeyReceiverAddress, "receiver address"},
	{"facilitator-url", x402.KeyFacilitatorURL, "facilitator base URL"},
	{"amount", x402.KeyPaymentAmount, "payment amount in token units (e.g. 0.5)"},
	{"timeout-seconds", x402.KeyTimeoutSeconds, "authorization timeout in seconds"},
	{"backdate-seconds", x402.KeyBackdateSeconds, "authorization backdate window in seconds"},
	{"resource", x402.KeyResource, "resource URL protected by the payment"},
	{"description", x402.KeyDescription, "payment description"},
	{"mime-type", x402.KeyMimeType, "MIME type of the protected resource"},
	{"token-decimals", x402.KeyTokenDecimals, "token decimal precision"},
	{"asset-address", x402.KeyAssetAddress, "ERC-20 token contract address"},
	{"token-name", x402.KeyTokenName, "token name used in the signing domain"},
	{"token-version", x402.KeyTokenVersion, "token version used in the signing domain"},
	{"chain-id", x402.KeyChainID, "EVM chain id used in signatures"},
	{"network", x402.KeyNetwork, "short network identifier (e.g. bsc)"},
}

// kvFlag collects repeated KEY=VALUE pairs.
type kvFlag map[string]string

func (f kvFlag) String() string { return "" }

func (f kvFlag) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok {
		return errors.New("overrides must look like KEY=VALUE")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("override key must not be empty")
	}
	f[key] = val
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("x402-payment", flag.ContinueOnError)

	envFile := fs.String("env-file", ".env", "path to the .env file containing X402_* settings")
	verifyOnly := fs.Bool("verify-only", false, "submit the payload to /verify but skip settlement")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "text", "log format (text or json)")

	setOverrides := kvFlag{}
	fs.Var(setOverrides, "set", "override an environment variable (KEY=VALUE, repeatable)")

	flagValues := make(map[string]*string, len(overrideFlags))
	for _, spec := range overrideFlags {
		flagValues[spec.name] = fs.String(spec.name, "", spec.usage)
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}

	logger := newLogger(*logLevel, *logFormat)

	overrides := make(map[string]string, len(setOverrides))
	for key, value := range setOverrides {
		overrides[key] = value
	}
	// Dedicated flags win over --set pairs.
	fs.Visit(func(f *flag.Flag) {
		for _, spec := range overrideFlags {
			if spec.name == f.Name {
				overrides[spec.key] = *flagValues[spec.name]
			}
		}
	})

	cfg, err := x402.LoadConfig(os.Environ(), *envFile, overrides)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	paymentID := "pay_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	logger = logger.With("payment_id", paymentID)
	logger.Info("prepared payment",
		"facilitator_url", cfg.FacilitatorURL,
		"network", cfg.Network,
		"amount", cfg.AmountDecimal.String(),
		"amount_base_units", cfg.AmountBaseUnitsString(),
		"payer", cfg.PayerAddress,
		"receiver", cfg.ReceiverAddress,
	)

	client := x402.NewFacilitatorClient(&x402.FacilitatorConfig{
		URL:    cfg.FacilitatorURL,
		Logger: logger,
	})

	result, err := client.Send(context.Background(), cfg, *verifyOnly)
	if err != nil {
		var rejection *x402.RejectionError
		if errors.As(err, &rejection) {
			logger.Error("payment rejected", "response", string(rejection.Response))
		} else {
			logger.Error("payment request failed", "error", err)
		}
		return 1
	}

	if *verifyOnly {
		logger.Info("verification succeeded, skipping settlement")
		return 0
	}

	if !result.Success {
		logger.Error("settlement failed", "response", string(result.Raw))
		return 1
	}

	logger.Info("payment settled",
		"network", result.Network,
		"transaction", result.Transaction,
	)
	return 0
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
