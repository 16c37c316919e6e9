package util

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidEmail is returned when an address cannot be parsed.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidPhoneNumber is returned when a number is not a valid, dialable number.
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
)

// NormalizeEmail trims and lower-cases an address and rejects display-name forms.
func NormalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", errors.Wrapf(ErrInvalidEmail, "%q", raw)
	}

	return strings.ToLower(addr.Address), nil
}

// NormalizePhoneNumber parses a number, using region for numbers without a country code,
// and formats it as E.164.
func NormalizePhoneNumber(raw, region string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), strings.ToUpper(region))
	if err != nil {
		return "", errors.Wrapf(ErrInvalidPhoneNumber, "%q: %v", raw, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.Wrapf(ErrInvalidPhoneNumber, "%q", raw)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// MaskRecipient hides most of an email local part or phone number for logging.
func MaskRecipient(recipient string) string {
	if at := strings.IndexByte(recipient, '@'); at > 0 {
		return recipient[:1] + "***" + recipient[at:]
	}
	if len(recipient) > 4 {
		return strings.Repeat("*", len(recipient)-4) + recipient[len(recipient)-4:]
	}

	return "****"
}

// FormatDuration formats duration into human readable format (e.g., "1h30m", "5m10s", "45s").
func FormatDuration(duration time.Duration) string {
	duration = duration.Round(time.Second)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	}

	if duration < time.Hour {
		m := int(duration.Minutes())
		s := int(duration.Seconds()) % 60

		return fmt.Sprintf("%dm%ds", m, s)
	}

	h := int(duration.Hours())
	m := int(duration.Minutes()) % 60

	return fmt.Sprintf("%dh%dm", h, m)
}
