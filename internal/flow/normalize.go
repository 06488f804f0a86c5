package flow

import (
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

const (
	// MinRawLength is the minimum raw field length before a check is even
	// scheduled. Below it the status display stays empty.
	MinRawLength = 8

	// MinDigits is the minimum normalized length eligible for verification.
	MinDigits = 10
)

// NormalizePhone strips everything but digits and enforces the international
// dialing prefix. Idempotent: a number that already carries the prefix is
// returned unchanged.
func NormalizePhone(raw, prefix string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, prefix) {
		digits = prefix + digits
	}
	return digits
}

// ValidateStrict runs the normalized number through libphonenumber and
// rejects numbers that cannot be a real subscriber number for any region.
// Only consulted when strict_validation is enabled; the default flow relies
// on the length check alone, like the checkout client does.
func ValidateStrict(normalized string) error {
	num, err := phonenumbers.Parse("+"+normalized, "")
	if err != nil {
		return types.Err(types.ErrBadInput, err, "phone %q is not parseable", normalized)
	}
	if !phonenumbers.IsValidNumber(num) {
		return types.Err(types.ErrBadInput, nil, "phone %q is not a valid number", normalized)
	}
	return nil
}
