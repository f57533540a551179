package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema reports a document whose shape does not match the feed layout.
	ErrSchema = errors.New("unexpected document shape")

	// ErrMissingParent reports an area whose parent code is absent from the master.
	ErrMissingParent = errors.New("missing parent area")

	// ErrEmptySample reports an average requested over no values.
	ErrEmptySample = errors.New("no values to average")

	// ErrTargetDateMissing reports a series with no slot for the target date.
	ErrTargetDateMissing = errors.New("target date not in series")

	// ErrTemperatureSlots reports a temperature series without exactly one
	// minimum and one maximum slot for the target date.
	ErrTemperatureSlots = errors.New("expected exactly two temperature slots")
)

func schemaErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchema, fmt.Sprintf(format, args...))
}
