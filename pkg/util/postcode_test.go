package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPostcode(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		expected string
	}{
		{"full address", "12 High Street, Manchester, M1 1AE, UK", "M1 1AE"},
		{"no space in postcode", "1 Example Road, London EC1A1BB", "EC1A 1BB"},
		{"lowercase input", "flat 2, 9 church lane, leeds ls1 4ab", "LS1 4AB"},
		{"westminster", "10 Downing Street, London SW1A 2AA", "SW1A 2AA"},
		{"no postcode", "Somewhere on the high street", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractPostcode(tt.address))
		})
	}
}

func TestNormalizePostcode(t *testing.T) {
	assert.Equal(t, "SW1A 1AA", NormalizePostcode("sw1a1aa"))
	assert.Equal(t, "M1 1AE", NormalizePostcode("M1  1AE"))
	assert.Equal(t, "EC1A 1BB", NormalizePostcode("EC1A 1BB"))
	assert.Equal(t, "", NormalizePostcode(""))
}

func TestOutwardCode(t *testing.T) {
	assert.Equal(t, "SW1A", OutwardCode("SW1A 1AA"))
	assert.Equal(t, "M1", OutwardCode("m11ae"))
	assert.Equal(t, "EC1A", OutwardCode("EC1A1BB"))
}

func TestLooksLikePostcode(t *testing.T) {
	assert.True(t, LooksLikePostcode("SW1A 1AA"))
	assert.True(t, LooksLikePostcode("m1 1ae"))
	assert.True(t, LooksLikePostcode("EC1A1BB"))
	assert.False(t, LooksLikePostcode("Manchester"))
	assert.False(t, LooksLikePostcode("12 High Street, M1 1AE"))
	assert.False(t, LooksLikePostcode(""))
}
