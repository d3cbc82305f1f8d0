// Package domain contains the host and VM contracts consumed by the placement policy,
// and the errors shared across policy components.
package domain

import "errors"

// Policy errors
var (
	// ErrInsufficientHistory is returned when a host has fewer utilization samples than a
	// detector needs. Detectors recover from it by delegating to their fallback.
	ErrInsufficientHistory = errors.New("insufficient utilization history")

	// ErrRegressionFailure is returned when the regression kernel cannot fit a trend.
	ErrRegressionFailure = errors.New("regression parameters cannot be estimated")

	// ErrInvalidConfig is returned when a policy is constructed with invalid parameters.
	ErrInvalidConfig = errors.New("invalid policy configuration")

	// ErrInvalidCapacity is returned when a host reports a capacity the policy cannot
	// reason about (non-positive MIPS or bandwidth, non-finite demand).
	ErrInvalidCapacity = errors.New("invalid host capacity")

	// ErrNoVMs is returned when an operation needs at least one resident VM.
	ErrNoVMs = errors.New("host has no resident VMs")

	// ErrNotFound is returned when a requested host or VM is not known.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when adding a host or VM that is already present.
	ErrAlreadyExists = errors.New("resource already exists")
)
