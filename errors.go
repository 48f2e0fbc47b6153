// Copyright (c) 2025 Neomantra Corp

package backtest

import "fmt"

var (
	ErrWindowInvalid      = fmt.Errorf("invalid replay window")
	ErrContainerMalformed = fmt.Errorf("malformed data container")
	ErrNullIdentifier     = fmt.Errorf("null identifier")
	ErrInvalidOrderSide   = fmt.Errorf("invalid order side")
	ErrDuplicateExecution = fmt.Errorf("duplicate execution id")
	ErrCurrencyMismatch   = fmt.Errorf("currency mismatch")
)

func windowError(startNs int64, stopNs int64, minNs int64, maxNs int64) error {
	return fmt.Errorf("%w: [%d, %d] is reversed or outside container range [%d, %d]",
		ErrWindowInvalid, startNs, stopNs, minNs, maxNs)
}

func columnShapeError(instrument InstrumentId, group string, want int, got int) error {
	return fmt.Errorf("%w: %s %s columns expected %d rows, got %d",
		ErrContainerMalformed, instrument, group, want, got)
}

func columnOrderError(instrument InstrumentId, group string, row int) error {
	return fmt.Errorf("%w: %s %s timestamps not ascending at row %d",
		ErrContainerMalformed, instrument, group, row)
}

func currencyError(op string, a Currency, b Currency) error {
	return fmt.Errorf("%w: cannot %s %s and %s", ErrCurrencyMismatch, op, a, b)
}
