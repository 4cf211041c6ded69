package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteErrorClassification(t *testing.T) {
	err := NewRemoteError("list sessions", 500, "boom")
	assert.ErrorIs(t, err, ErrRemote)
	assert.NotErrorIs(t, err, ErrAuth)

	var remote *RemoteError
	assert.True(t, errors.As(err, &remote))
	assert.Equal(t, 500, remote.Status)
	assert.Equal(t, "list sessions: status 500: boom", err.Error())
}

func TestUnauthorizedIsAuthError(t *testing.T) {
	err := NewRemoteError("create session", 401, "")
	assert.ErrorIs(t, err, ErrAuth)
	assert.ErrorIs(t, err, ErrRemote)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", ErrAuth), "Authentication required"},
		{fmt.Errorf("x: %w", ErrNetwork), "Network error"},
		{NewRemoteError("op", 502, ""), "Server error"},
		{fmt.Errorf("x: %w", ErrConsistency), "Server did not confirm the change"},
		{fmt.Errorf("x: %w", ErrStream), "Answer interrupted"},
		{errors.New("other"), "Error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.err))
		})
	}
}
