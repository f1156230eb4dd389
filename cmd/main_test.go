package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()

	return buf.String(), err
}

func TestCommandsAreRegistered(t *testing.T) {
	for _, name := range []string{"serve", "ask", "summarize", "fetch", "token"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestTokenCmd_IssuesVerifiableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	out, err := execute(t, "token", "42", "--ttl", "1h")
	require.NoError(t, err)

	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(strings.TrimSpace(out), &claims, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.NotNil(t, claims.ExpiresAt)
}

func TestTokenCmd_RejectsBadInput(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := execute(t, "token", "not-a-number")
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "")

	_, err = execute(t, "token", "42")
	assert.Error(t, err)
}

func TestAskCmd_RejectsUnknownRole(t *testing.T) {
	t.Cleanup(func() { askRole = "student" })

	_, err := execute(t, "ask", "--role", "dean", "what is recursion?")
	assert.ErrorContains(t, err, "unknown role")
}

func TestSummarizeCmd_MissingFile(t *testing.T) {
	_, err := execute(t, "summarize", filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorContains(t, err, "read file")
}

func TestServeCmd_RequiresASurface(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "test.sqlite"))

	_, err := execute(t, "serve")
	assert.ErrorContains(t, err, "TELEGRAM_TOKEN or HTTP_ADDR is required")
}
