package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goAuth-client/internal/authtest"
)

var testKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func cliEnv(t *testing.T) (*authtest.Server, []string) {
	t.Helper()
	srv := authtest.NewServer(nil)
	t.Cleanup(srv.Close)
	t.Setenv("AUTHCLIENT_STORE_KEY", testKey)
	t.Setenv("AUTHCLIENT_CONFIG", "")
	t.Setenv("AUTHCLIENT_BASE_URL", "")
	chdirForTest(t, t.TempDir())
	base := []string{
		"--base-url", srv.URL,
		"--store-path", filepath.Join(t.TempDir(), "session.tok"),
		"--log-level", "error",
	}
	return srv, base
}

func TestLoginStatusLogout(t *testing.T) {
	srv, base := cliEnv(t)
	srv.AddUser("alice@example.com", "hunter22")

	out, _, err := runCLI(t, "hunter22\n", append(base, "login", "--email", "alice@example.com", "--password-stdin")...)
	require.NoError(t, err)
	assert.Contains(t, out, "state: authenticated")
	assert.Contains(t, out, "alice@example.com")

	out, _, err = runCLI(t, "", append(base, "status")...)
	require.NoError(t, err)
	assert.Contains(t, out, "state: authenticated")

	out, _, err = runCLI(t, "", append(base, "whoami")...)
	require.NoError(t, err)
	assert.Contains(t, out, `"email": "alice@example.com"`)

	out, _, err = runCLI(t, "", append(base, "logout")...)
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")

	out, _, err = runCLI(t, "", append(base, "status")...)
	require.NoError(t, err)
	assert.Contains(t, out, "state: unauthenticated")
}

func TestGetRequiresSession(t *testing.T) {
	_, base := cliEnv(t)

	_, _, err := runCLI(t, "", append(base, "get", "/api/items")...)
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
}

func TestGetSendsAuthenticatedRequest(t *testing.T) {
	srv, base := cliEnv(t)
	srv.AddUser("bob@example.com", "pw-bob-1")

	_, _, err := runCLI(t, "", append(base, "login", "--email", "bob@example.com", "--password", "pw-bob-1")...)
	require.NoError(t, err)

	out, stderr, err := runCLI(t, "", append(base, "get", "/api/items?x=1", "-H", "X-Trace: abc")...)
	require.NoError(t, err)
	assert.Contains(t, stderr, "HTTP 200")
	assert.Contains(t, out, `"path":"/api/items"`)
	assert.Contains(t, out, `"query":"x=1"`)
}

func TestInvalidCredentialsExitCode(t *testing.T) {
	srv, base := cliEnv(t)
	srv.AddUser("carol@example.com", "right-pass")

	_, _, err := runCLI(t, "", append(base, "login", "--email", "carol@example.com", "--password", "wrong-pass")...)
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
}

func TestConfigCommandRedactsSecrets(t *testing.T) {
	_, base := cliEnv(t)

	out, _, err := runCLI(t, "", append(base, "config")...)
	require.NoError(t, err)
	assert.Contains(t, out, redacted)
	assert.NotContains(t, out, testKey)
}

func TestConfigCommandStrictLint(t *testing.T) {
	t.Setenv("AUTHCLIENT_STORE_KEY", testKey)
	t.Setenv("AUTHCLIENT_CONFIG", "")
	t.Setenv("AUTHCLIENT_BASE_URL", "")
	chdirForTest(t, t.TempDir())

	_, stderr, err := runCLI(t, "", "--base-url", "http://auth.example.com", "config", "--strict")
	require.Error(t, err)
	assert.Contains(t, stderr, "plaintext_transport")
}

func TestConfigEnvUsage(t *testing.T) {
	out, _, err := runCLI(t, "", "config", "--env")
	require.NoError(t, err)
	assert.Contains(t, out, "AUTHCLIENT_BASE_URL")
}
