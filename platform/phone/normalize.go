// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when the caller does not configure one.
const DefaultRegion = "BR"

// NormalizeE164 formats a phone number to E.164 using region for national
// numbers. If parsing fails, it returns the trimmed input.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, strings.ToUpper(region))
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// WhatsAppJID returns the gateway recipient form ("5511...@s.whatsapp.net")
// or false when the number cannot be normalized.
func WhatsAppJID(input, region string) (string, bool) {
	e164 := NormalizeE164(input, region)
	if !strings.HasPrefix(e164, "+") {
		return "", false
	}
	return strings.TrimPrefix(e164, "+") + "@s.whatsapp.net", true
}
