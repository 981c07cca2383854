package service

import (
	"ace_lms_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStructKeepsValidatorMessage(t *testing.T) {
	req := RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "short"}

	raw := validate.Struct(req)
	require.Error(t, raw)

	err := validateStruct(req)
	assert.ErrorIs(t, err, util.ErrInvalidArgument)
	assert.EqualError(t, err, raw.Error())

	assert.NoError(t, validateStruct(RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "secret123"}))
}
