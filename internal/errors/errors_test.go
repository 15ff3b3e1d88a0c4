package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigErrorFormatting(t *testing.T) {
	err := NewConfigFieldError(CodeValidation, "value out of range", "timeout", -1)

	assert.Contains(t, err.Error(), "VALIDATION")
	assert.Contains(t, err.Error(), "timeout")
}

func TestScanErrorFormatting(t *testing.T) {
	err := WrapScanErrorWithTarget(CodeProbeFailed, "probe failed", "10.0.0.1",
		stderrors.New("underlying")).WithPort(443)

	assert.Contains(t, err.Error(), "PROBE_FAILED")
	assert.Contains(t, err.Error(), "10.0.0.1:443")
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := WrapScanError(CodeScanFailed, "wrapped", cause)

	assert.True(t, stderrors.Is(err, cause))
}

func TestIsCodeAndGetCode(t *testing.T) {
	assert.True(t, IsCode(NewValidationError("bad"), CodeValidation))
	assert.False(t, IsCode(NewValidationError("bad"), CodeTimeout))
	assert.Equal(t, CodeNotFound, GetCode(NewDatabaseError(CodeNotFound, "missing")))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(NewValidationError("bad")))
	assert.True(t, IsFatal(ErrInvalidTarget("")))
	assert.True(t, IsFatal(ErrConfigMissing("mode")))
	assert.False(t, IsFatal(NewScanError(CodeProbeFailed, "transient")))
	assert.False(t, IsFatal(stderrors.New("plain")))
}

func TestErrDatabaseConnectionSanitized(t *testing.T) {
	cause := stderrors.New("password=hunter2 host=db.internal")
	err := ErrDatabaseConnection(cause)

	assert.NotContains(t, err.Error(), "hunter2")
	assert.True(t, stderrors.Is(err, cause))
}
