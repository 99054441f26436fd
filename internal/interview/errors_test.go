package interview

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := newError(KindGenerationFailed, "start", "failed to generate question 1", cause)

	assert.Equal(t, "start: failed to generate question 1: deadline exceeded", err.Error())
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrEvaluationFailed)

	wrapped := fmt.Errorf("handler: %w", err)
	assert.Equal(t, KindGenerationFailed, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, ErrGenerationFailed)

	assert.Equal(t, KindInternal, KindOf(cause))
	assert.Equal(t, "get: session not found", notFound("get", "session").Error())
}

func TestError_IsDoesNotMatchConcreteErrors(t *testing.T) {
	a := invalidState("pause", "session is %s", "created")
	b := invalidState("resume", "session is %s", "created")
	assert.False(t, errors.Is(a, b))
	assert.True(t, errors.Is(a, ErrInvalidState))
}
