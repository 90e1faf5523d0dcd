package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
)

func TestValidateNewPassword(t *testing.T) {
	require.NoError(t, ValidateNewPassword(passwords.NewSecret("correct-horse-battery")))
	require.NoError(t, ValidateNewPassword(passwords.NewSecret(strings.Repeat("ж", MaxPasswordLength))))

	for _, pw := range []string{"", "short", strings.Repeat("x", MinPasswordLength-1), strings.Repeat("x", MaxPasswordLength+1)} {
		err := ValidateNewPassword(passwords.NewSecret(pw))
		require.ErrorIs(t, err, common.ErrInvalidInput)
		if pw != "" {
			require.NotContains(t, err.Error(), pw)
		}
	}
}
