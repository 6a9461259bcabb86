package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitwit/x402-transfer/types"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{types.ErrInvalidAmount, exitValidation},
		{types.ErrInvalidAddress, exitValidation},
		{types.ErrInvalidKey, exitValidation},
		{types.ErrKeyMismatch, exitValidation},
		{types.ErrUnsupportedNetwork, exitValidation},
		{types.ErrConnectionError, exitConnection},
		{types.ErrInsufficientBalance, exitInsufficient},
		{types.ErrConfirmationTimeout, exitTimeout},
		{types.ErrBuildError, exitSubmission},
		{types.ErrSubmissionError, exitSubmission},
		{types.ErrVerificationMismatch, exitSubmission},
	}

	for _, tt := range tests {
		err := types.NewTransferError(tt.code, "boom")
		require.Equal(t, tt.want, exitCode(err), tt.code)
	}

	require.Equal(t, exitSubmission, exitCode(errors.New("untyped")))
}
