package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/socialink/pkg/domain/types"
)

// Sentinel errors for use case layer
var (
	// Authorization flow errors
	ErrExchange               = errors.New("authorization code exchange failed")
	ErrDiscovery              = errors.New("account discovery failed")
	ErrInvalidState           = errors.New("invalid authorization state")
	ErrPlatformNotInteractive = errors.New("platform does not support interactive authorization")

	// Publish errors
	ErrNotConnected      = errors.New("target account is not connected")
	ErrPublishStepFailed = errors.New("publish step failed")

	// Outbound call exceeded its deadline
	ErrTimeout = errors.New("outbound call timed out")

	// Webhook body could not be read at the transport level
	ErrMalformedWebhook = errors.New("malformed webhook delivery")

	// Access control errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrUserNotFound = errors.New("user not found")

	ErrInvalidInput = errors.New("invalid input")
)

// Context keys for error values
const (
	UserIDKey    = "user_id"
	PlatformKey  = "platform"
	AccountIDKey = "account_id"
	JobIDKey     = "job_id"
)

// PublishStepError reports which protocol step of a publish attempt failed.
// errors.Is matches ErrPublishStepFailed and the underlying cause.
type PublishStepError struct {
	Phase types.PublishPhase
	Err   error
}

func (e *PublishStepError) Error() string {
	return "publish failed at " + e.Phase.String() + ": " + e.Err.Error()
}

func (e *PublishStepError) Unwrap() []error {
	return []error{ErrPublishStepFailed, e.Err}
}

// IsRetriable reports whether the caller may retry the operation as is
func IsRetriable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrDiscovery)
}

// outboundError wraps a failed provider call with kind, replacing it with
// ErrTimeout when the call ran out of time
func outboundError(err, kind error, msg string, opts ...goerr.Option) error {
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ErrTimeout
	}
	return goerr.Wrap(errors.Join(kind, err), msg, opts...)
}
