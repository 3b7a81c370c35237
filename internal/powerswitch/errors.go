package powerswitch

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (unreachable, reset, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeAuth indicates the challenge login was rejected or the form was unusable
	ErrTypeAuth
	// ErrTypeHTTP indicates an HTTP-level error (non-200 status code)
	ErrTypeHTTP
	// ErrTypeParse indicates the status page could not be scraped
	ErrTypeParse
	// ErrTypeResolution indicates an unknown outlet name or out-of-range index
	ErrTypeResolution
	// ErrTypeVerification indicates the outlet did not reach the requested state
	ErrTypeVerification
	// ErrTypeValidation indicates invalid endpoint or argument values
	ErrTypeValidation
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the switch refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorConnectionRefused
	NetworkErrorConnectionReset
	NetworkErrorDNS
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// Sentinel errors, matched with errors.Is.
var (
	ErrUnknownOutlet    = errors.New("unknown outlet")
	ErrOutletOutOfRange = errors.New("outlet number out of range")
	ErrNotReachable     = errors.New("switch not reachable")
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeResolution:
		return "Invalid Outlet"
	case ErrTypeVerification:
		return "Verification Failed"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// SwitchError represents an error that occurred while talking to a power switch
type SwitchError struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable error message
	StatusCode     int                 // HTTP status code (if applicable)
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific network error type
	Address        string              // Switch address (for context)
	Retryable      bool                // Whether the transport may retry
}

// Error implements the error interface
func (e *SwitchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *SwitchError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes an error and returns a more specific error type.
// Only connection-level failures (timeout, refused, reset, unreachable) are retryable.
// The checks walk the wrap chain, so *url.Error values from net/http classify directly.
func ClassifyNetworkError(err error, address string) *SwitchError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &SwitchError{
			Type:           ErrTypeTimeout,
			Message:        "Request timed out",
			Err:            err,
			NetworkSubtype: NetworkErrorTimeout,
			Address:        address,
			Retryable:      true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &SwitchError{
			Type:           ErrTypeDNS,
			Message:        fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:            err,
			NetworkSubtype: NetworkErrorDNS,
			Address:        address,
			Retryable:      false,
		}
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return &SwitchError{
			Type:           ErrTypeConnectionRefused,
			Message:        "Switch refused connection",
			Err:            err,
			NetworkSubtype: NetworkErrorConnectionRefused,
			Address:        address,
			Retryable:      true,
		}
	case errors.Is(err, syscall.ECONNRESET):
		return &SwitchError{
			Type:           ErrTypeNetwork,
			Message:        "Connection reset by switch",
			Err:            err,
			NetworkSubtype: NetworkErrorConnectionReset,
			Address:        address,
			Retryable:      true,
		}
	case errors.Is(err, syscall.EHOSTUNREACH):
		return &SwitchError{
			Type:           ErrTypeNetwork,
			Message:        "Host unreachable",
			Err:            err,
			NetworkSubtype: NetworkErrorHostUnreachable,
			Address:        address,
			Retryable:      true,
		}
	case errors.Is(err, syscall.ENETUNREACH):
		return &SwitchError{
			Type:           ErrTypeNetwork,
			Message:        "Network unreachable",
			Err:            err,
			NetworkSubtype: NetworkErrorNetworkUnreachable,
			Address:        address,
			Retryable:      true,
		}
	}

	return &SwitchError{
		Type:           ErrTypeNetwork,
		Message:        "Network error occurred",
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
		Address:        address,
		Retryable:      true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *SwitchError {
	classified := ClassifyNetworkError(err, "")
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &SwitchError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string, err error) *SwitchError {
	return &SwitchError{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Err:        err,
		Retryable:  false,
	}
}

// NewHTTPError creates an HTTP-level error. HTTP errors are never retried.
func NewHTTPError(statusCode int, message string) *SwitchError {
	return &SwitchError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  false,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *SwitchError {
	return &SwitchError{
		Type:      ErrTypeParse,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewResolutionError creates an invalid outlet reference error wrapping one of
// ErrUnknownOutlet or ErrOutletOutOfRange.
func NewResolutionError(message string, err error) *SwitchError {
	return &SwitchError{
		Type:      ErrTypeResolution,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewVerificationError creates a post-command state mismatch error
func NewVerificationError(message string) *SwitchError {
	return &SwitchError{
		Type:      ErrTypeVerification,
		Message:   message,
		Retryable: false,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *SwitchError {
	return &SwitchError{
		Type:      ErrTypeValidation,
		Message:   message,
		Retryable: false,
	}
}

func asSwitchError(err error) (*SwitchError, bool) {
	var swErr *SwitchError
	if errors.As(err, &swErr) {
		return swErr, true
	}
	return nil, false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS, etc.)
func IsNetworkError(err error) bool {
	if swErr, ok := asSwitchError(err); ok {
		return swErr.Type == ErrTypeNetwork ||
			swErr.Type == ErrTypeTimeout ||
			swErr.Type == ErrTypeConnectionRefused ||
			swErr.Type == ErrTypeDNS
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	if swErr, ok := asSwitchError(err); ok {
		return swErr.Type == ErrTypeAuth
	}
	return false
}

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool {
	if swErr, ok := asSwitchError(err); ok {
		return swErr.Type == ErrTypeHTTP
	}
	return false
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	if swErr, ok := asSwitchError(err); ok {
		return swErr.Type == ErrTypeParse
	}
	return false
}

// IsResolutionError checks if an error is an invalid outlet reference
func IsResolutionError(err error) bool {
	if swErr, ok := asSwitchError(err); ok {
		return swErr.Type == ErrTypeResolution
	}
	return false
}

// IsVerificationError checks if an error is a post-command state mismatch
func IsVerificationError(err error) bool {
	if swErr, ok := asSwitchError(err); ok {
		return swErr.Type == ErrTypeVerification
	}
	return false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	if swErr, ok := asSwitchError(err); ok {
		return swErr.Type == ErrTypeValidation
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if swErr, ok := asSwitchError(err); ok {
		return swErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	swErr, ok := asSwitchError(err)
	if !ok {
		if errors.Is(err, ErrNotReachable) {
			return "The switch did not answer the login probe. Check the hostname and credentials."
		}
		return "An unexpected error occurred. Please try again."
	}

	switch swErr.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The switch did not respond in time.",
			"Troubleshooting:",
			"  • Check that the switch is powered and its network link is up",
			"  • Try increasing --timeout (the web UI can be slow under load)",
			"  • Try increasing --retries",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"The switch refused the connection.",
			"Troubleshooting:",
			"  • Check whether the web UI is served over https (use --https)",
			"  • Verify the HTTP port in the hostname (host:port)",
			"  • Make sure the web server is enabled in the switch setup page",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the switch hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead of the hostname",
			"  • Check your network DNS settings",
		}, "\n")

	case ErrTypeAuth:
		return strings.Join([]string{
			"Login to the switch failed.",
			"Troubleshooting:",
			"  • Check the --user and --password values",
			"  • Without flags the client logs in as admin with password 4321",
			"  • Confirm the page at / shows the challenge login form",
		}, "\n")

	case ErrTypeNetwork:
		hint := []string{"Network communication failed."}

		switch swErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			hint = append(hint, "The switch is not reachable on the network.",
				"Troubleshooting:",
				"  • Verify the switch address is correct",
				"  • Try pinging the switch: ping "+swErr.Address)

		case NetworkErrorConnectionReset:
			hint = append(hint, "The switch dropped the connection.",
				"Troubleshooting:",
				"  • The embedded web server accepts few parallel connections; retry",
				"  • Reduce the number of outlets switched at once")

		default:
			hint = append(hint, "Troubleshooting:",
				"  • Check your network connection",
				"  • Verify the switch is powered on")
		}

		return strings.Join(hint, "\n")

	case ErrTypeHTTP:
		return fmt.Sprintf("The switch returned HTTP error %d. The account may lack permission for this page.", swErr.StatusCode)

	case ErrTypeParse:
		return strings.Join([]string{
			"Failed to read the outlet table from the switch status page.",
			"This may indicate an unsupported firmware page layout.",
			"Troubleshooting:",
			"  • Run with DLIPOWER_LOG_LEVEL=debug to dump the page",
			"  • Check that the account can open /index.htm in a browser",
		}, "\n")

	case ErrTypeResolution:
		return "The outlet reference does not match any outlet number or name on the switch."

	case ErrTypeVerification:
		return "The switch accepted the command but the outlet did not change state. The outlet may be locked."

	case ErrTypeValidation:
		return "The supplied values are invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	swErr, ok := asSwitchError(err)
	if !ok {
		return err.Error()
	}

	switch swErr.Type {
	case ErrTypeTimeout:
		return "Switch not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Switch refused connection"
	case ErrTypeDNS:
		return "Cannot resolve switch hostname"
	case ErrTypeAuth:
		return "Login failed - check credentials"
	case ErrTypeNetwork:
		switch swErr.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "Switch unreachable - check network connection"
		case NetworkErrorConnectionReset:
			return "Connection reset by switch"
		default:
			return "Network error - check connection"
		}
	case ErrTypeHTTP:
		return fmt.Sprintf("Switch error (HTTP %d)", swErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse switch status page"
	default:
		return swErr.Message
	}
}
