// Package driver composes the filesystem surface, change log, replayer,
// mutator, and test generator into the five CLI verbs. It is intentionally
// thin: every decision of substance lives in the package it delegates to.
package driver

import "errors"

// Sentinel error kinds the driver wraps around returned errors, so cmd/'s
// top-level handler can choose an exit code with errors.Is instead of
// string matching.
var (
	// ErrSetup covers mount helper failure, an unusable mountpoint, or a
	// missing/unreadable base image.
	ErrSetup = errors.New("setup error")
	// ErrIO covers read/write failures on the session fd or on changes.
	ErrIO = errors.New("i/o error")
	// ErrUpcall covers a FUSE upcall the filesystem surface could not
	// service (surfaced here only when it escapes Mount itself).
	ErrUpcall = errors.New("upcall error")
	// ErrGuest covers a non-zero exit from the guest shell command.
	ErrGuest = errors.New("guest command failed")
	// ErrGeneration covers a malformed changes file or a mutation failure.
	ErrGeneration = errors.New("generation error")
)
