package models

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrAlreadyRunning    = errors.New("another instance is already running for this destination")
	ErrDestinationNotDir = errors.New("destination is not a directory")
)

// RemoteErrorKind classifies failures talking to the dashcam.
type RemoteErrorKind string

const (
	// RemoteUnreachable covers connection refused and host-down conditions,
	// the normal state whenever the vehicle is away from the network.
	RemoteUnreachable RemoteErrorKind = "unreachable"

	// RemoteTimeout covers connect and read timeouts.
	RemoteTimeout RemoteErrorKind = "timeout"

	// RemoteProtocol covers unparseable listing bodies and unexpected
	// status codes, which indicate a firmware incompatibility.
	RemoteProtocol RemoteErrorKind = "protocol"

	// RemoteServer covers 5xx responses from the listing endpoint.
	RemoteServer RemoteErrorKind = "server"
)

// RemoteError is a failure communicating with the dashcam.
type RemoteError struct {
	Kind RemoteErrorKind
	Addr string
	Err  error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dashcam %s: %s: %v", e.Addr, e.Kind, e.Err)
	}
	return fmt.Sprintf("dashcam %s: %s", e.Addr, e.Kind)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Expected reports whether the failure is a steady-state condition (device
// off-network) rather than something worth alerting on.
func (e *RemoteError) Expected() bool {
	return e.Kind == RemoteUnreachable || e.Kind == RemoteTimeout
}

// TransferError is a failure downloading a single file. The executor skips
// the file and continues; the next scheduled run retries it.
type TransferError struct {
	Name   string
	Status int
	Err    error
}

func (e *TransferError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transfer %s: HTTP %d", e.Name, e.Status)
	}
	return fmt.Sprintf("transfer %s: %v", e.Name, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ParseError is a malformed recording filename. Callers log and skip.
type ParseError struct {
	Filename string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Filename, e.Reason)
}

// DiskFullError signals that the destination filesystem exceeded the
// configured usage threshold. The remainder of the plan is abandoned.
type DiskFullError struct {
	Path        string
	UsedPercent float64
	MaxPercent  float64
}

func (e *DiskFullError) Error() string {
	return fmt.Sprintf("disk at %s is %.1f%% used, over the %.0f%% limit",
		e.Path, e.UsedPercent, e.MaxPercent)
}
