// SPDX-License-Identifier: MPL-2.0

package sshserver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evmodels/plmc-harness/pkg/types"

	"github.com/charmbracelet/log"
)

var (
	// ErrInvalidHostAddress is the sentinel error wrapped by InvalidHostAddressError.
	ErrInvalidHostAddress = errors.New("invalid host address")
	// ErrInvalidTokenValue is the sentinel error wrapped by InvalidTokenValueError.
	ErrInvalidTokenValue = errors.New("invalid token value")
	// ErrInvalidSSHConfig is the sentinel error wrapped by InvalidSSHConfigError.
	ErrInvalidSSHConfig = errors.New("invalid SSH server config")
)

type (
	// HostAddress is the interface or hostname the server binds to.
	HostAddress string

	// TokenValue is the shared secret clients send as their password.
	TokenValue string

	// Config holds the immutable settings of a Server.
	Config struct {
		Host HostAddress
		// Port 0 picks a free port.
		Port  types.ListenPort
		Token TokenValue
		// HostKeyPath is created on first start when missing. Empty means an
		// ephemeral key per process.
		HostKeyPath     types.FilesystemPath
		ShutdownTimeout time.Duration
		Logger          *log.Logger
	}

	// InvalidHostAddressError is returned for an empty host.
	InvalidHostAddressError struct {
		Value HostAddress
	}

	// InvalidTokenValueError is returned for an empty token. An SSH surface
	// without a token would run tools for anyone who can reach the port.
	InvalidTokenValueError struct {
		Value TokenValue
	}

	// InvalidSSHConfigError collects the field errors of a Config.
	InvalidSSHConfigError struct {
		FieldErrors []error
	}
)

// DefaultConfig returns a loopback configuration on an ephemeral port.
// Token must still be set.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if err := c.Host.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Port.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Token.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.HostKeyPath != "" {
		if err := c.HostKeyPath.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &InvalidSSHConfigError{FieldErrors: errs}
	}
	return nil
}

// String returns the string representation of the HostAddress.
func (h HostAddress) String() string { return string(h) }

// Validate returns an error wrapping ErrInvalidHostAddress for a blank address.
func (h HostAddress) Validate() error {
	if strings.TrimSpace(string(h)) == "" {
		return &InvalidHostAddressError{Value: h}
	}
	return nil
}

// String returns the token redacted.
func (t TokenValue) String() string {
	if t == "" {
		return ""
	}
	return "[redacted]"
}

// Validate returns an error wrapping ErrInvalidTokenValue for a blank token.
func (t TokenValue) Validate() error {
	if strings.TrimSpace(string(t)) == "" {
		return &InvalidTokenValueError{Value: t}
	}
	return nil
}

// Error implements the error interface for InvalidHostAddressError.
func (e *InvalidHostAddressError) Error() string {
	return fmt.Sprintf("invalid host address %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidHostAddress for errors.Is() compatibility.
func (e *InvalidHostAddressError) Unwrap() error { return ErrInvalidHostAddress }

// Error implements the error interface for InvalidTokenValueError.
func (e *InvalidTokenValueError) Error() string {
	return "invalid token value: the SSH server requires a non-empty token"
}

// Unwrap returns ErrInvalidTokenValue for errors.Is() compatibility.
func (e *InvalidTokenValueError) Unwrap() error { return ErrInvalidTokenValue }

// Error implements the error interface for InvalidSSHConfigError.
func (e *InvalidSSHConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid SSH server config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns the sentinel and every field error.
func (e *InvalidSSHConfigError) Unwrap() []error {
	return append([]error{ErrInvalidSSHConfig}, e.FieldErrors...)
}
