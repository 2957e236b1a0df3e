package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckCollectsFailures(t *testing.T) {
	v := New()

	v.Check(true, "title", "must not be blank")
	assert.True(t, v.IsValid())

	v.Check(false, "title", "must not be blank")
	assert.False(t, v.IsValid())
	assert.Equal(t, "must not be blank", v.Errors["title"])
}

func TestAddErrorKeepsFirstMessage(t *testing.T) {
	v := New()

	v.AddError("email", "must be provided")
	v.AddError("email", "must be a valid email address")

	assert.Equal(t, "must be provided", v.Errors["email"])
}

func TestCheckNotBlank(t *testing.T) {
	v := New()

	v.CheckNotBlank("value", "ok", "must not be blank")
	v.CheckNotBlank("   ", "blank", "must not be blank")

	assert.NotContains(t, v.Errors, "ok")
	assert.Contains(t, v.Errors, "blank")
}

func TestCheckEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"jake@jake.jake", true},
		{"user.name+tag@example.co.uk", true},
		{"not-an-email", false},
		{"@example.com", false},
		{"user@", false},
		{"", false},
	}

	for _, tt := range tests {
		v := New()
		v.CheckEmail(tt.email, "must be a valid email address")
		assert.Equal(t, tt.valid, v.IsValid(), "email %q", tt.email)
	}
}

func TestIsUnique(t *testing.T) {
	v := New()

	assert.True(t, v.IsUnique([]string{"a", "b", "c"}))
	assert.True(t, v.IsUnique(nil))
	assert.False(t, v.IsUnique([]string{"a", "b", "a"}))
}
