package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Message     string  `validate:"required,min=1,max=10"`
	Temperature float64 `validate:"gte=0,lte=2"`
	TopK        int     `validate:"gt=0,lte=20"`
}

func TestValidateStruct_Valid(t *testing.T) {
	payload := samplePayload{Message: "hello", Temperature: 0.7, TopK: 3}

	assert.NoError(t, ValidateStruct(payload))
}

func TestValidateStruct_CollectsFieldErrors(t *testing.T) {
	payload := samplePayload{Message: "", Temperature: 3.5, TopK: 0}

	err := ValidateStruct(payload)

	require.Error(t, err)
	require.True(t, IsValidationError(err))

	fields := GetValidationFields(err)
	assert.Contains(t, fields["Message"], "required")
	assert.Contains(t, fields["Temperature"], "less than or equal to 2")
	assert.Contains(t, fields["TopK"], "greater than 0")
}

func TestValidateStruct_MaxLength(t *testing.T) {
	payload := samplePayload{Message: "this message is far too long", Temperature: 1, TopK: 3}

	err := ValidateStruct(payload)

	require.Error(t, err)
	fields := GetValidationFields(err)
	assert.Contains(t, fields["Message"], "at most 10")
}

func TestIsValidationError_PlainError(t *testing.T) {
	assert.False(t, IsValidationError(errors.New("boom")))
	assert.Nil(t, GetValidationFields(errors.New("boom")))
}

func TestValidationError_Message(t *testing.T) {
	err := ValidateStruct(samplePayload{})

	require.Error(t, err)
	assert.Equal(t, "Validation failed", err.Error())
}
