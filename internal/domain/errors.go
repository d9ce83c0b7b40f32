package domain

import "errors"

// Failure taxonomy shared by the executor, harvester and engine.
var (
	// ErrUnknownBalance is returned when a balance could not be read.
	ErrUnknownBalance = errors.New("balance unknown")

	// ErrInsufficientReserve is returned when an action cannot be funded without breaching the reserve floor.
	ErrInsufficientReserve = errors.New("insufficient reserve")

	// ErrQuoteUnavailable is returned when the aggregator refuses a quote. No funds moved.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrBuildFailed is returned when the aggregator cannot build the transaction. No funds moved.
	ErrBuildFailed = errors.New("build failed")

	// ErrSubmissionFailed is returned when every submission attempt failed. No funds moved.
	ErrSubmissionFailed = errors.New("submission failed")

	// ErrConfirmationAmbiguous is returned when a submitted transaction could not be confirmed
	// in time. Funds may have moved; the action must not be retried as a new one.
	ErrConfirmationAmbiguous = errors.New("confirmation ambiguous")

	// ErrTransactionFailed is returned when the ledger confirmed the transaction with an error.
	ErrTransactionFailed = errors.New("transaction failed on-chain")

	// ErrNoCredential marks an optional feature whose credential is absent.
	ErrNoCredential = errors.New("credential not configured")
)
