// Package contact handles the site's contact form: the inquiry is posted to
// the notification webhook and stored as a row of the contact database.
package contact

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"foundation/internal/domain"
)

// Field limits in runes.
const (
	MaxNameLength    = 200
	MaxEmailLength   = 254
	MaxMessageLength = 5000
)

// Inquiry is one contact form submission.
type Inquiry struct {
	Name    string
	Email   string
	Message string
}

// FromForm reads the name, email and message fields.
func FromForm(form url.Values) Inquiry {
	return Inquiry{
		Name:    strings.TrimSpace(form.Get("name")),
		Email:   strings.TrimSpace(form.Get("email")),
		Message: strings.TrimSpace(form.Get("message")),
	}
}

// Validate checks the inquiry and normalises the email to its bare address.
// Failures wrap domain.ErrInvalidInput.
func (q *Inquiry) Validate() error {
	if q.Message == "" {
		return fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(q.Message) > MaxMessageLength {
		return fmt.Errorf("%w: message exceeds %d characters", domain.ErrInvalidInput, MaxMessageLength)
	}
	if utf8.RuneCountInString(q.Name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", domain.ErrInvalidInput, MaxNameLength)
	}
	if q.Email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if len(q.Email) > MaxEmailLength {
		return fmt.Errorf("%w: email is too long", domain.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(q.Email)
	if err != nil || !strings.Contains(addr.Address, "@") {
		return fmt.Errorf("%w: email is not valid", domain.ErrInvalidInput)
	}
	q.Email = addr.Address
	return nil
}
