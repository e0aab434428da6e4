package settings

import (
	"strings"

	"github.com/google/uuid"
)

// Redacted replaces secret values in sanitized text.
const Redacted = "[redacted]"

// Sanitize replaces every occurrence of the given secret values in text.
// Vendor error bodies pass through here before being surfaced to callers so
// credentials never echo back.
func Sanitize(text string, secrets ...string) string {
	for _, s := range secrets {
		if s == "" {
			continue
		}
		text = strings.ReplaceAll(text, s, Redacted)
	}
	return text
}

// GenerateCallbackKey returns a fresh random callback API key for tenants
// that did not supply one.
func GenerateCallbackKey() string {
	return uuid.NewString()
}
