// Package domain validates user-supplied subscriber data before it reaches
// storage.
package domain

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dmitrijs2005/newsletter/internal/common"
)

const (
	MaxNameLength  = 256
	forbiddenChars = `/()"<>\{}`
)

// NewSubscriber is a validated signup request.
type NewSubscriber struct {
	Email string
	Name  string
}

// ParseNewSubscriber validates a signup form. The returned error wraps
// common.ErrInvalidInput.
func ParseNewSubscriber(name, email string) (NewSubscriber, error) {
	email = strings.TrimSpace(email)

	if err := validateName(name); err != nil {
		return NewSubscriber{}, fmt.Errorf("%w: name: %w", common.ErrInvalidInput, err)
	}
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return NewSubscriber{}, fmt.Errorf("%w: email: %w", common.ErrInvalidInput, err)
	}

	return NewSubscriber{Email: email, Name: name}, nil
}

func validateName(name string) error {
	if err := validation.Validate(strings.TrimSpace(name), validation.Required); err != nil {
		return err
	}
	return validation.Validate(name,
		validation.RuneLength(1, MaxNameLength),
		validation.By(noForbiddenChars),
	)
}

func noForbiddenChars(value interface{}) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, forbiddenChars) {
		return errors.New("must not contain any of " + forbiddenChars)
	}
	return nil
}
