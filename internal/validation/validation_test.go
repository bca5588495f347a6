package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/clipmarket/internal/common"
)

type sample struct {
	Title     string   `json:"title" validate:"required,min=3"`
	Budget    float64  `json:"budget" validate:"gt=0"`
	Code      string   `json:"code" validate:"len=6,numeric"`
	Platforms []string `json:"platforms" validate:"min=1,dive,platform"`
	StartDate string   `json:"startDate" validate:"datetime=2006-01-02"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(sample{Title: "Launch", Budget: 10, Code: "123456", Platforms: []string{"tiktok"}, StartDate: "2026-01-31"})
	assert.NoError(t, err)
}

func TestStruct_FieldErrors(t *testing.T) {
	err := Struct(sample{Title: "ab", Budget: 0, Code: "12a456", Platforms: []string{"myspace"}, StartDate: "31/01/2026"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))

	var ve *common.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "must be at least 3 characters", ve.Fields["title"])
	assert.Equal(t, "must be greater than 0", ve.Fields["budget"])
	assert.Equal(t, "must contain only digits", ve.Fields["code"])
	assert.Contains(t, ve.Fields["platforms[0]"], "tiktok")
	assert.Contains(t, ve.Fields["startDate"], "2006-01-02")
}

func TestStruct_EmptyCollection(t *testing.T) {
	err := Struct(sample{Title: "Launch", Budget: 1, Code: "123456", StartDate: "2026-01-01"})

	var ve *common.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "must have at least 1 entries", ve.Fields["platforms"])
}

func TestIsPlatform(t *testing.T) {
	assert.True(t, IsPlatform("x"))
	assert.False(t, IsPlatform("X"))
}
