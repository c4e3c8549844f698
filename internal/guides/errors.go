package guides

import "errors"

var (
	// ErrUnknownProfile is returned when a nuclease name isn't in the registry
	ErrUnknownProfile = errors.New("unknown nuclease profile")

	// ErrInvalidProfile is returned when a profile can't be compiled or registered
	ErrInvalidProfile = errors.New("invalid nuclease profile")

	// ErrEmptySequence is returned when a target has no sequence to scan
	ErrEmptySequence = errors.New("empty target sequence")

	// ErrInvalidSequence is returned when a target has characters outside ACGTN
	ErrInvalidSequence = errors.New("invalid target sequence")

	// ErrMalformedOffTarget marks an off-target record without usable mismatch metadata.
	// Records that fail with it are skipped, they never fail a design
	ErrMalformedOffTarget = errors.New("malformed off-target record")
)
