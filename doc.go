// Package x402 implements the payer side of the x402 payment protocol
// for BNB Smart Chain: it normalizes a payment configuration, constructs
// and signs an ERC-3009 transfer authorization, and drives the
// verify/settle exchange with a Unibase facilitator that executes the
// transfer on-chain.
package x402
