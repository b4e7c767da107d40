package credentials

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := NewProviderErrorWithCause(TypeClientCredentials, "discovery", "issuer discovery failed", cause)

	assert.Equal(t, "credentials discovery (client_credentials): issuer discovery failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	noCause := &ProviderError{Provider: TypeBasic, Operation: "header", Message: "boom"}
	assert.Equal(t, "credentials header (basic): boom", noCause.Error())
	assert.Nil(t, noCause.Unwrap())
}

func TestConfigError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{name: "with field", err: NewConfigError("issuer", "required"), want: "credentials config error at issuer: required"},
		{name: "without field", err: NewConfigError("", "bad"), want: "credentials config error: bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, ErrInvalidConfig)
			assert.NotErrorIs(t, tt.err, ErrDiscovery)
		})
	}
}
