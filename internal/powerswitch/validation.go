package powerswitch

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// maxOutletNameLength is the longest name the switch's setup page accepts
const maxOutletNameLength = 16

// ValidateHostname validates a switch address: a hostname or IP, optionally
// followed by :port.
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return NewValidationError("hostname cannot be empty")
	}
	if strings.Contains(hostname, "://") || strings.Contains(hostname, "/") {
		return NewValidationError(fmt.Sprintf("hostname must not include a scheme or path: %q", hostname))
	}

	host := hostname
	if h, port, err := net.SplitHostPort(hostname); err == nil {
		if err := ValidatePort(port); err != nil {
			return err
		}
		host = h
	}

	if net.ParseIP(host) != nil {
		return nil
	}
	for _, r := range host {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.' || r == '_') {
			return NewValidationError(fmt.Sprintf("invalid character %q in hostname %q", r, hostname))
		}
	}
	return nil
}

// ValidatePort validates a TCP port given as a string
func ValidatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return NewValidationError(fmt.Sprintf("port must be 1-65535, got %q", port))
	}
	return nil
}

// ValidateTimeout validates a per-request timeout.
// Must be positive and at most one minute.
func ValidateTimeout(d time.Duration) error {
	if d <= 0 {
		return NewValidationError(fmt.Sprintf("timeout must be positive, got %s", d))
	}
	if d > time.Minute {
		return NewValidationError(fmt.Sprintf("timeout too long (max 1m): %s", d))
	}
	return nil
}

// ValidateRetries validates the number of attempts per request (1-10)
func ValidateRetries(n int) error {
	if n < 1 || n > 10 {
		return NewValidationError(fmt.Sprintf("retries must be 1-10, got %d", n))
	}
	return nil
}

// ValidateOutletName validates a name before it is sent to the switch.
// Names must be non-empty, at most 16 characters and printable.
func ValidateOutletName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("outlet name cannot be empty")
	}
	if len(name) > maxOutletNameLength {
		return NewValidationError(fmt.Sprintf("outlet name too long (max %d chars): %d chars", maxOutletNameLength, len(name)))
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return NewValidationError(fmt.Sprintf("outlet name contains a non-printable character: %q", name))
		}
	}
	return nil
}

// ValidateEndpoint validates every field of an endpoint.
// Returns a slice of validation errors (empty if valid).
func ValidateEndpoint(e Endpoint) []error {
	var errs []error

	if err := ValidateHostname(e.Hostname); err != nil {
		errs = append(errs, fmt.Errorf("hostname: %w", err))
	}
	if e.Timeout != 0 {
		if err := ValidateTimeout(e.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("timeout: %w", err))
		}
	}
	if e.Retries != 0 {
		if err := ValidateRetries(e.Retries); err != nil {
			errs = append(errs, fmt.Errorf("retries: %w", err))
		}
	}
	if e.CycleDelay < 0 {
		errs = append(errs, fmt.Errorf("cycle delay: %w", NewValidationError("must not be negative")))
	}

	return errs
}
