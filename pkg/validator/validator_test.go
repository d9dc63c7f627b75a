package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerPayload struct {
	Name     string `validate:"required,min=2,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Role     string `validate:"required,oneof=user stall_owner"`
}

func validPayload() registerPayload {
	return registerPayload{
		Name:     "Dina Rahma",
		Email:    "dina@example.com",
		Password: "s3cret-pass",
		Role:     "user",
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(validPayload()))
}

func TestValidate_MissingRequired(t *testing.T) {
	p := validPayload()
	p.Email = ""
	err := Validate(p)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Len(t, valErr.Messages(), 1)
	assert.Contains(t, valErr.Messages()[0], "Email")
	assert.Contains(t, valErr.Messages()[0], "is required")
}

func TestValidate_MultipleFailures(t *testing.T) {
	p := registerPayload{Name: "x", Email: "nope", Password: "short", Role: "admin"}
	err := Validate(p)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	msgs := valErr.Messages()
	assert.Len(t, msgs, 4)

	joined := strings.Join(msgs, "; ")
	assert.Contains(t, joined, "must be at least 2 characters")
	assert.Contains(t, joined, "must be a valid email address")
	assert.Contains(t, joined, "must be at least 8 characters")
	assert.Contains(t, joined, "must be one of: user stall_owner")
	assert.Equal(t, joined, valErr.Error())
}

func TestValidate_RangeTags(t *testing.T) {
	type quantityPayload struct {
		Quantity int `validate:"gte=1,lte=99"`
	}
	err := Validate(quantityPayload{Quantity: 0})
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Messages()[0], "greater than or equal to 1")

	err = Validate(quantityPayload{Quantity: 100})
	require.Error(t, err)
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Messages()[0], "less than or equal to 99")
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"Name":"Dina Rahma","Email":"dina@example.com","Password":"s3cret-pass","Role":"user"}`
	r := httptest.NewRequest("POST", "/register", strings.NewReader(body))

	var p registerPayload
	require.NoError(t, DecodeAndValidate(r, &p))
	assert.Equal(t, "dina@example.com", p.Email)
}

func TestDecodeAndValidate_BadJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/register", strings.NewReader("{not json"))

	var p registerPayload
	err := DecodeAndValidate(r, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
