package domain

import "errors"

var (
	// ErrProviderUnavailable marks a failed or timed-out geometry or elevation fetch.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrInvalidParameter marks a simulation request rejected before processing.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrRegionNotFound marks a filter naming a region absent from the reference data.
	ErrRegionNotFound = errors.New("region not found")

	// ErrSimulationNotFound marks a history lookup for an unknown simulation ID.
	ErrSimulationNotFound = errors.New("simulation not found")
)
