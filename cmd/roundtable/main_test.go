package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCodeErrorRoundTrip(t *testing.T) {
	// The code must survive cobra's error wrapping back to Execute's caller.
	wrapped := fmt.Errorf("command failed: %w", exitCodeError{code: 2})

	var ec exitCodeError
	require.True(t, errors.As(wrapped, &ec))
	assert.Equal(t, 2, ec.code)

	assert.False(t, errors.As(errors.New("plain failure"), &ec))
}
