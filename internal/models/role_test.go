package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"patient", "doctor", "admin"} {
		role, err := ParseRole(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, role.String())
	}

	for _, invalid := range []string{"", "Patient", "staff", "root"} {
		_, err := ParseRole(invalid)
		assert.Error(t, err, "role %q must be rejected", invalid)
	}
}
