package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateOrganization(t *testing.T) {
	valid := []string{"acme", "Acme-Corp", "a", "9lives", strings.Repeat("a", 39)}
	for _, org := range valid {
		assert.NoError(t, ValidateOrganization(org), org)
	}

	invalid := []string{
		"",
		"acme/../evil",
		"../evil",
		"acme?x=1",
		"acme%2Fevil",
		"acme corp",
		"-acme",
		"acme-",
		"acme_corp",
		strings.Repeat("a", 40),
	}
	for _, org := range invalid {
		assert.ErrorIs(t, ValidateOrganization(org), ErrInvalidOrganization, org)
	}
}

func TestValidateHandle(t *testing.T) {
	for _, handle := range []string{"alice", "bob-smith", "carol_acme"} {
		assert.NoError(t, ValidateHandle(handle), handle)
	}
	for _, handle := range []string{"", "alice/x", "..", "_alice", "alice#1"} {
		assert.ErrorIs(t, ValidateHandle(handle), ErrInvalidHandle, handle)
	}
}
