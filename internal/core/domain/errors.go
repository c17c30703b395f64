package domain

import "errors"

// Sentinel errors returned by storage adapters. Services translate them into
// client-facing errors.
var (
	ErrDuplicateTxID   = errors.New("transaction txid already exists")
	ErrLockTimeout     = errors.New("wallet lock wait timed out")
	ErrAmountPrecision = errors.New("amount exceeds storage precision")
)
