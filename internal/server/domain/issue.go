package domain

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dmitrijs2005/newsletter/internal/common"
)

const MaxTitleLength = 998

// NewIssue is a validated publish request.
type NewIssue struct {
	Title       string
	HTMLContent string
	TextContent string
}

// ParseNewIssue requires a title and at least one body. The returned error
// wraps common.ErrInvalidInput.
func ParseNewIssue(title, html, text string) (NewIssue, error) {
	title = strings.TrimSpace(title)
	if err := validation.Validate(title, validation.Required, validation.RuneLength(1, MaxTitleLength)); err != nil {
		return NewIssue{}, fmt.Errorf("%w: title: %w", common.ErrInvalidInput, err)
	}
	if strings.TrimSpace(html) == "" && strings.TrimSpace(text) == "" {
		return NewIssue{}, fmt.Errorf("%w: content: cannot be blank", common.ErrInvalidInput)
	}
	return NewIssue{Title: title, HTMLContent: html, TextContent: text}, nil
}

// IsValidEmail reports whether a stored address still parses.
func IsValidEmail(email string) bool {
	return validation.Validate(email, validation.Required, is.Email) == nil
}
