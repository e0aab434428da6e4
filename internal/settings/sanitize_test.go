package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeRedactsAllSecrets(t *testing.T) {
	in := `{"error":"invalid_client","error_description":"client s3cr3t rejected, key hook-key-1 unknown"}`
	out := Sanitize(in, "s3cr3t", "hook-key-1")
	assert.NotContains(t, out, "s3cr3t")
	assert.NotContains(t, out, "hook-key-1")
	assert.Contains(t, out, Redacted)
	assert.Contains(t, out, "invalid_client")
}

func TestSanitizeIgnoresEmptySecrets(t *testing.T) {
	in := "nothing to hide"
	assert.Equal(t, in, Sanitize(in, "", ""))
}

func TestSanitizeRepeatedOccurrences(t *testing.T) {
	out := Sanitize("abc abc abc", "abc")
	assert.Equal(t, "[redacted] [redacted] [redacted]", out)
}

func TestGenerateCallbackKey(t *testing.T) {
	a := GenerateCallbackKey()
	b := GenerateCallbackKey()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
