package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveService(t *testing.T) {
	tests := []struct {
		instance string
		expected string
	}{
		{"checkout-7d9f8c6b5-xk2p9", "checkout"},
		{"payment-gateway-5f6d7c8b9a-ab12c", "payment-gateway"},
		{"cart-12345678-zzzzz", "cart"},
		{"standalone-job", "standalone-job"},
		{"checkout-7d9f8c6b5", "checkout-7d9f8c6b5"},
		{"web-ZZZZZZZZ-abcde", "web-ZZZZZZZZ-abcde"},
		{"redis-0", "redis-0"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.instance, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveService(tt.instance))
		})
	}
}
