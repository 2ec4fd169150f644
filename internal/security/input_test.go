package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbsInt(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"42", 42},
		{"  17", 17},
		{"-5", 5},
		{"+8", 8},
		{"12abc", 12},
		{"abc", 0},
		{"", 0},
		{"3.9", 3},
		{"99999999999999999999999", 9223372036854775807},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AbsInt(tt.in), "AbsInt(%q)", tt.in)
	}
}

func TestSecureInput_Int(t *testing.T) {
	assert.Equal(t, "7", SecureInput("-7", InputInt))
	assert.Equal(t, "0", SecureInput("nope", InputInt))
}

func TestSecureInput_URL(t *testing.T) {
	assert.Equal(t, "https://shop.example.com/wp-json", SecureInput("https://shop.example.com/wp-json", InputURL))
	assert.Equal(t, "", SecureInput("javascript:alert(1)", InputURL))
	assert.Equal(t, "", SecureInput("ftp://files.example.com", InputURL))
	assert.Equal(t, "", SecureInput("not a url", InputURL))
}

func TestSecureInput_Text(t *testing.T) {
	assert.Equal(t, "hello world", SecureInput("  <b>hello</b>\n\tworld  ", InputText))
	assert.Equal(t, "pro", SecureInput("pro", InputText))
	assert.Equal(t, "ab", SecureInput("a%0Ab", InputText))
}

func TestSecureInput_UnknownKindIsText(t *testing.T) {
	assert.Equal(t, "x", SecureInput("<i>x</i>", InputKind("other")))
}

func TestSecureInputs(t *testing.T) {
	got := SecureInputs([]string{"1", "-2", "x"}, InputInt)
	assert.Equal(t, []string{"1", "2", "0"}, got)
}
