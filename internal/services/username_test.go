package services_test

import (
	"testing"

	"promptshare/internal/services"
	"promptshare/internal/validation"

	"github.com/stretchr/testify/assert"
)

func TestDeriveUsername(t *testing.T) {
	tests := []struct {
		name        string
		displayName string
		email       string
		want        string
	}{
		{"first space removed", "Alexander Hamilton", "ah@x.com", "alexanderhamilton"},
		{"remaining spaces fall back to slug", "Mary Ann Smith", "m@x.com", "mary.ann.smith"},
		{"too short falls back to slug", "John Doe", "jd@x.com", "john.doe"},
		{"hyphen becomes separator", "Jean-Luc Picard", "jl@x.com", "jean.luc.picard"},
		{"non ascii dropped", "José Álvarez", "ja@x.com", "jos.lvarez"},
		{"truncated", "Wolfgang Amadeus Mozart Junior", "w@x.com", "wolfgang.amadeus.moz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := services.DeriveUsername(tt.displayName, tt.email)
			assert.Equal(t, tt.want, got)
			assert.True(t, validation.IsValidUsername(got))
		})
	}
}

func TestDeriveUsername_Padding(t *testing.T) {
	short := services.DeriveUsername("Bo", "bo@x.com")
	assert.Len(t, short, 8)
	assert.Equal(t, "bo", short[:2])
	assert.True(t, validation.IsValidUsername(short))
	assert.Equal(t, short, services.DeriveUsername("Bo", "bo@x.com"), "derivation is deterministic")
	assert.NotEqual(t, short, services.DeriveUsername("Bo", "bo2@x.com"))

	fromEmail := services.DeriveUsername("", "octo.cat@x.com")
	assert.Equal(t, "octo.cat", fromEmail)

	empty := services.DeriveUsername("!!!", "")
	assert.Len(t, empty, 8)
	assert.True(t, validation.IsValidUsername(empty))
}
