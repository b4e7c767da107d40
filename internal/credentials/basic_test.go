package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		password string
		want     string
	}{
		{name: "simple", username: "u", password: "p", want: "Basic dTpw"},
		{name: "defaults", username: "testuser", password: "testpass", want: "Basic dGVzdHVzZXI6dGVzdHBhc3M="},
		{name: "empty", want: "Basic Og=="},
		{name: "colon in password", username: "a", password: "b:c", want: "Basic YTpiOmM="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BasicHeader(tt.username, tt.password))
		})
	}
}

func TestBasicProvider(t *testing.T) {
	t.Parallel()

	p := NewBasicProvider("u", "p", WithMetrics(NewMetrics("test")))
	assert.Equal(t, TypeBasic, p.Type())

	// Cancelled contexts do not matter: nothing blocks.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	header, err := p.AuthHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Basic dTpw", header)
}
