package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/taskr/internal/config"
	"github.com/phrazzld/taskr/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	return lines[len(lines)-1]
}

func validate(t *testing.T, secret, token string) *auth.Claims {
	t.Helper()
	tokens, err := auth.NewTokenService(config.AuthConfig{JWTSecret: secret, TokenLifetime: time.Hour})
	require.NoError(t, err)
	claims, err := tokens.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	return claims
}

func TestTokengen_Defaults(t *testing.T) {
	t.Setenv("TASKR_AUTH_JWT_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	token := run(t)

	claims := validate(t, config.DevJWTSecret, token)
	assert.Equal(t, "user123", claims.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestTokengen_Flags(t *testing.T) {
	token := run(t, "--user", "alice", "--expiry", "10m", "--secret", "flag-secret")

	claims := validate(t, "flag-secret", token)
	assert.Equal(t, "alice", claims.UserID)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestTokengen_SecretFromEnv(t *testing.T) {
	t.Setenv("TASKR_AUTH_JWT_SECRET", "")
	t.Setenv("JWT_SECRET", "legacy-secret")

	token := run(t, "-u", "bob")

	claims := validate(t, "legacy-secret", token)
	assert.Equal(t, "bob", claims.UserID)
}

func TestTokengen_RejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}
