package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"go.uber.org/zap"
)

const basicPrefix = "Basic "

// Verifier checks the Basic credential Payme sends with every webhook call.
type Verifier struct {
	login   string
	secrets SecretStore
	logger  *zap.Logger
}

// NewVerifier builds a Verifier. An empty login accepts any merchant id.
func NewVerifier(login string, secrets SecretStore, logger *zap.Logger) *Verifier {
	return &Verifier{
		login:   login,
		secrets: secrets,
		logger:  logger,
	}
}

// Verify reports whether the Authorization header value carries the
// current merchant key.
func (v *Verifier) Verify(ctx context.Context, authorization string) bool {
	if !strings.HasPrefix(authorization, basicPrefix) {
		return false
	}
	payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(authorization[len(basicPrefix):]))
	if err != nil {
		return false
	}
	login, password, ok := strings.Cut(string(payload), ":")
	if !ok {
		return false
	}

	secret, err := v.secrets.Get(ctx)
	if err != nil {
		v.logger.Error("merchant key unavailable, rejecting request", zap.Error(err))
		return false
	}
	if secret == "" {
		return false
	}

	if v.login != "" && subtle.ConstantTimeCompare([]byte(login), []byte(v.login)) != 1 {
		v.logger.Warn("unexpected merchant login", zap.String("login", login))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(secret)) == 1
}

// Set rotates the merchant key.
func (v *Verifier) Set(ctx context.Context, key string) error {
	return v.secrets.Set(ctx, key)
}
