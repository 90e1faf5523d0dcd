package domain

import (
	"fmt"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
)

const (
	MinPasswordLength = 12
	MaxPasswordLength = 128
)

// ValidateNewPassword checks the length of a password about to be stored.
// The returned error wraps common.ErrInvalidInput and never contains the
// password.
func ValidateNewPassword(pw passwords.Secret) error {
	n := utf8.RuneCount(pw.Bytes())
	err := validation.Validate(n, validation.Required, validation.Min(MinPasswordLength), validation.Max(MaxPasswordLength))
	if err != nil {
		return fmt.Errorf("%w: password must be between %d and %d characters", common.ErrInvalidInput, MinPasswordLength, MaxPasswordLength)
	}
	return nil
}
