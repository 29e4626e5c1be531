package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonFor(t *testing.T) {
	tests := []struct {
		err    error
		reason string
	}{
		{ErrInsufficientFunds, ReasonInsufficientFunds},
		{ErrUserNotFound, ReasonNotAuthenticated},
		{fmt.Errorf("load: %w", ErrDictionaryNotLoaded), ReasonUnavailable},
		{ErrUnknownGame, ReasonInvalidAction},
		{errors.New("disk on fire"), ReasonInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.reason, ReasonFor(tt.err))
		})
	}
}
