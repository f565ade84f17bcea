// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "templates.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeRegistry(t, `{
		"version": "1.0",
		"lastUpdated": "2026-08-01",
		"templates": [
			{
				"templateId": "order-shipped",
				"name": "Order Shipped",
				"channel": "email",
				"subject": "Order {{order_id}}",
				"body": "Hi {{name}}, your order shipped.",
				"translations": [
					{"language": "de", "subject": "Bestellung {{order_id}}", "body": "Hallo {{name}}."}
				]
			}
		]
	}`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Templates, 1)
	assert.Equal(t, "order-shipped", reg.Templates[0].TemplateID)
	assert.Len(t, reg.Templates[0].Translations, 1)
}

func TestLoadRegistry_SmsChannel(t *testing.T) {
	path := writeRegistry(t, `{
		"templates": [
			{"templateId": "otp-code", "name": "OTP Code", "channel": "sms", "body": "Your code is {{code}}"}
		]
	}`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Templates, 1)
	assert.Equal(t, "sms", reg.Templates[0].Channel)
}

func TestLoadRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing id", `{"templates": [{"channel": "email", "body": "x"}]}`},
		{"missing body", `{"templates": [{"templateId": "a", "channel": "email"}]}`},
		{"bad channel", `{"templates": [{"templateId": "a", "channel": "fax", "body": "x"}]}`},
		{"duplicate id", `{"templates": [
			{"templateId": "a", "channel": "email", "body": "x"},
			{"templateId": "a", "channel": "push", "body": "y"}
		]}`},
		{"translation without language", `{"templates": [
			{"templateId": "a", "channel": "email", "body": "x", "translations": [{"body": "y"}]}
		]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRegistry(t, tt.content)
			_, err := LoadRegistry(path)
			assert.Error(t, err)
		})
	}
}
