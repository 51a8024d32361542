package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/socialink/pkg/domain/types"
	"github.com/secmon-lab/socialink/pkg/usecase"
)

func TestErrors_ErrorsAreDistinct(t *testing.T) {
	all := []error{
		usecase.ErrExchange,
		usecase.ErrDiscovery,
		usecase.ErrInvalidState,
		usecase.ErrPlatformNotInteractive,
		usecase.ErrNotConnected,
		usecase.ErrPublishStepFailed,
		usecase.ErrTimeout,
		usecase.ErrMalformedWebhook,
		usecase.ErrUnauthorized,
		usecase.ErrUserNotFound,
		usecase.ErrInvalidInput,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				gt.Bool(t, errors.Is(a, b)).False()
			}
		}
	}
}

func TestPublishStepError(t *testing.T) {
	cause := errors.New("boom")
	err := goerr.Wrap(&usecase.PublishStepError{Phase: types.PublishPhaseConfirm, Err: cause}, "publish")

	gt.Bool(t, errors.Is(err, usecase.ErrPublishStepFailed)).True()
	gt.Bool(t, errors.Is(err, cause)).True()

	var stepErr *usecase.PublishStepError
	gt.Bool(t, errors.As(err, &stepErr)).True()
	gt.Value(t, stepErr.Phase).Equal(types.PublishPhaseConfirm)
	gt.String(t, stepErr.Error()).Contains("confirm")
}

func TestIsRetriable(t *testing.T) {
	gt.Bool(t, usecase.IsRetriable(goerr.Wrap(usecase.ErrTimeout, "x"))).True()
	gt.Bool(t, usecase.IsRetriable(goerr.Wrap(usecase.ErrDiscovery, "x"))).True()
	gt.Bool(t, usecase.IsRetriable(goerr.Wrap(usecase.ErrExchange, "x"))).False()
	gt.Bool(t, usecase.IsRetriable(usecase.ErrNotConnected)).False()
}

func TestOutboundError(t *testing.T) {
	err := usecase.OutboundError(context.DeadlineExceeded, usecase.ErrExchange, "exchange")
	gt.Bool(t, errors.Is(err, usecase.ErrTimeout)).True()
	gt.Bool(t, errors.Is(err, usecase.ErrExchange)).False()
	gt.Bool(t, errors.Is(err, context.DeadlineExceeded)).True()

	err = usecase.OutboundError(errors.New("bad code"), usecase.ErrExchange, "exchange")
	gt.Bool(t, errors.Is(err, usecase.ErrExchange)).True()
	gt.Bool(t, errors.Is(err, usecase.ErrTimeout)).False()
}
