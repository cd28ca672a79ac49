// Package errs defines common error variables used across the application.
package errs

import "errors"

// Submission errors.
var (
	// ErrTaskInFlight indicates that the user already has a task being processed.
	ErrTaskInFlight = errors.New("task already in flight for user")
)

// Pipeline errors.
var (
	// ErrExtractionFailed indicates that the media extraction step failed.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrNoEntries indicates that extraction produced no media entries.
	ErrNoEntries = errors.New("extraction produced no entries")
	// ErrNormalizationFailed indicates that the transcoding step failed for an entry.
	ErrNormalizationFailed = errors.New("normalization failed")
	// ErrEmptyOutput indicates that a produced file is missing or zero bytes.
	ErrEmptyOutput = errors.New("output file missing or empty")
)

// External tool errors.
var (
	// ErrBinaryNotFound indicates that a required binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current OS/arch is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// AI capability errors.
var (
	// ErrNoCaption indicates that there is no caption text to operate on.
	ErrNoCaption = errors.New("no caption text available")
	// ErrCapabilityDisabled indicates that an optional capability is not configured.
	ErrCapabilityDisabled = errors.New("capability disabled")
)

// Proxy errors.
var (
	// ErrNoProxiesAvailable indicates that no proxies are available.
	ErrNoProxiesAvailable = errors.New("no proxies available")
)
