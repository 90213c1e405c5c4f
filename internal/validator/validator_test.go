package validator

import (
	"testing"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type titled struct {
	Title string `json:"title" validate:"required,trimmed_min=3"`
}

func newValidate(t *testing.T) *govalidator.Validate {
	t.Helper()
	v := govalidator.New()
	Register(v)
	return v
}

func TestTrimmedMin(t *testing.T) {
	v := newValidate(t)

	tests := []struct {
		name  string
		title string
		ok    bool
	}{
		{"plain", "Physics", true},
		{"exactly three", "abc", true},
		{"padded short", "  ab  ", false},
		{"whitespace only", "     ", false},
		{"multibyte", "فيز", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(titled{Title: tt.title})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestTranslateErrors_UsesJSONNames(t *testing.T) {
	v := newValidate(t)

	err := v.Struct(titled{Title: " a "})
	require.Error(t, err)

	fields := TranslateErrors(err)
	require.Contains(t, fields, "title")
	assert.Equal(t, "title must be at least 3 characters long", fields["title"])
}

func TestTranslateErrors_NonValidation(t *testing.T) {
	fields := TranslateErrors(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), fields["detail"])
}
