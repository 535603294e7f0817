package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Sender delivers one message.
type Sender interface {
	SendEmail(ctx context.Context, msg Message) error
}

type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	Tag      string `json:"tag,omitempty"`
}

func (m Message) Validate() error {
	var errs []error
	if _, err := mail.ParseAddress(m.To); err != nil {
		errs = append(errs, fmt.Errorf("recipient %q: %w", m.To, err))
	}
	if strings.TrimSpace(m.Subject) == "" {
		errs = append(errs, errors.New("subject is required"))
	}
	if strings.TrimSpace(m.BodyHTML) == "" {
		errs = append(errs, errors.New("body is required"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidMessage}, errs...)...)
	}
	return nil
}

func validAddress(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}
