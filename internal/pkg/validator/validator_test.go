package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"123e4567-e89b-12d3-a456-426614174000",
	}
	invalid := []string{
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"",
	}
	for _, id := range valid {
		if !IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = true, want false", id)
		}
	}
}

func TestIsValidClock(t *testing.T) {
	if !IsValidClock("08:00") || !IsValidClock("23:59") {
		t.Error("expected valid clock values")
	}
	if IsValidClock("8am") || IsValidClock("24:01") {
		t.Error("expected invalid clock values")
	}
}

func TestIsValidTimezone(t *testing.T) {
	if !IsValidTimezone("UTC") {
		t.Error("UTC should be valid")
	}
	if IsValidTimezone("Mars/Olympus") || IsValidTimezone("") {
		t.Error("expected invalid timezone")
	}
}

type sampleRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Month  int    `json:"month" validate:"min=1,max=12"`
	Format string `json:"format" validate:"omitempty,oneof=csv xlsx"`
}

func TestStruct(t *testing.T) {
	errs := Struct(sampleRequest{Email: "bursar@school.ng", Month: 3, Format: "csv"})
	assert.Nil(t, errs)

	errs = Struct(sampleRequest{Email: "", Month: 13, Format: "pdf"})
	require.Len(t, errs, 3)
	m := errs.ToMap()
	assert.Equal(t, "is required", m["email"])
	assert.Equal(t, "must be at most 12", m["month"])
	assert.Equal(t, "must be one of: csv xlsx", m["format"])
}

func TestValidationErrors_OrNil(t *testing.T) {
	var errs ValidationErrors
	assert.NoError(t, errs.OrNil())
	errs = append(errs, ValidationError{Field: "reason", Message: "is required"})
	assert.EqualError(t, errs.OrNil(), "reason: is required")
}
