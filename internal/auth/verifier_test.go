package auth

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func basic(credentials string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

func TestVerifier_Verify(t *testing.T) {
	v := NewVerifier("Paycom", NewMemorySecretStore("s3cr3t"), zaptest.NewLogger(t))

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{name: "valid credential", header: basic("Paycom:s3cr3t"), want: true},
		{name: "wrong key", header: basic("Paycom:nope"), want: false},
		{name: "key as prefix only", header: basic("Paycom:s3cr3t-extra"), want: false},
		{name: "wrong login", header: basic("Other:s3cr3t"), want: false},
		{name: "no separator", header: basic("Paycoms3cr3t"), want: false},
		{name: "bearer scheme", header: "Bearer s3cr3t", want: false},
		{name: "not base64", header: "Basic !!!", want: false},
		{name: "empty", header: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Verify(context.Background(), tt.header))
		})
	}
}

func TestVerifier_AnyLogin(t *testing.T) {
	v := NewVerifier("", NewMemorySecretStore("s3cr3t"), zaptest.NewLogger(t))

	assert.True(t, v.Verify(context.Background(), basic("merchant-42:s3cr3t")))
	assert.False(t, v.Verify(context.Background(), basic("merchant-42:")))
}

func TestVerifier_EmptySecretRejectsEverything(t *testing.T) {
	v := NewVerifier("Paycom", NewMemorySecretStore(""), zaptest.NewLogger(t))

	assert.False(t, v.Verify(context.Background(), basic("Paycom:")))
}

func TestVerifier_Rotation(t *testing.T) {
	ctx := context.Background()
	v := NewVerifier("Paycom", NewMemorySecretStore("old"), zaptest.NewLogger(t))

	require.NoError(t, v.Set(ctx, "new"))

	assert.False(t, v.Verify(ctx, basic("Paycom:old")))
	assert.True(t, v.Verify(ctx, basic("Paycom:new")))
}
