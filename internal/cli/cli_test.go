package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/mcp-digitalocean/internal/doclient/fakeapi"
	"github.com/soyeahso/mcp-digitalocean/internal/domain"
)

var configEnv = []string{
	"DIGITALOCEAN_API_TOKEN", "DIGITALOCEAN_TOKEN", "DIGITALOCEAN_API_ENDPOINT",
	"DROPLET_NAME", "DROPLET_REGION", "DROPLET_SIZE", "SNAPSHOT_ID", "SSH_KEYS", "DROPLET_TAGS",
	"MONITORING", "IPV6", "PRIVATE_NETWORKING", "WAIT_FOR_ACTIVE",
	"DOMCP_POLL_INTERVAL", "DOMCP_WAIT_TIMEOUT", "DOMCP_LOG_LEVEL",
}

// isolate points DOMCP_HOME at a temp dir and clears config env vars.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("DOMCP_HOME", home)
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
	return home
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cfgFile, logLevel = "", ""

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--log-level", "silent"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func useFakeAPI(t *testing.T) *fakeapi.Server {
	t.Helper()
	srv := fakeapi.New(t)
	t.Setenv("DIGITALOCEAN_API_TOKEN", fakeapi.Token)
	t.Setenv("DIGITALOCEAN_API_ENDPOINT", srv.URL)
	return srv
}

func TestVersionCmd(t *testing.T) {
	isolate(t)
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "domcp "))
}

func TestConfigRoundTrip(t *testing.T) {
	home := isolate(t)

	out, err := runCLI(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.yaml")+"\n", out)

	out, err = runCLI(t, "", "config", "set", "droplet.region", "tor1")
	require.NoError(t, err)
	assert.Equal(t, "Set droplet.region = tor1\n", out)

	out, err = runCLI(t, "", "config", "get", "droplet.region")
	require.NoError(t, err)
	assert.Equal(t, "tor1\n", out)

	out, err = runCLI(t, "", "config", "get", "droplet")
	require.NoError(t, err)
	assert.Equal(t, "region: tor1\n", out)

	_, err = runCLI(t, "", "config", "unset", "droplet.region")
	require.NoError(t, err)

	_, err = runCLI(t, "", "config", "get", "droplet.region")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestConfigSetRejectsBlockedKey(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "", "config", "set", "droplet.__proto__", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked key")
}

func TestStatusCmd(t *testing.T) {
	isolate(t)
	t.Setenv("DIGITALOCEAN_API_TOKEN", "dop_v1_0123456789abcdef")
	t.Setenv("SNAPSHOT_ID", "123456")

	out, err := runCLI(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Config file not found")
	assert.Contains(t, out, "dop_v1_0...")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "gpu-droplet in nyc1, size g-2vcpu-16gb")
	assert.Contains(t, out, "123456")
	assert.NotContains(t, out, "Token OK")
}

func TestStatusShowsValidationIssues(t *testing.T) {
	isolate(t)
	t.Setenv("DOMCP_WAIT_TIMEOUT", "1s")
	t.Setenv("DOMCP_POLL_INTERVAL", "5s")

	out, err := runCLI(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Validation issues (1)")
	assert.Contains(t, out, "wait.pollInterval")
}

func TestStatusReportsBadDurationEnv(t *testing.T) {
	isolate(t)
	t.Setenv("DOMCP_WAIT_TIMEOUT", "forever")

	out, err := runCLI(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Validation issues (1)")
	assert.Contains(t, out, `wait.timeout: DOMCP_WAIT_TIMEOUT="forever" is not a duration`)

	_, err = runCLI(t, "", "deploy", "--snapshot", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestStatusCheck(t *testing.T) {
	isolate(t)
	srv := useFakeAPI(t)

	out, err := runCLI(t, "", "status", "--check")
	require.NoError(t, err)
	assert.Contains(t, out, "Token OK: ops@example.com")
	assert.Equal(t, 1, srv.Count("GET", "/v2/account"))
}

func TestStatusCheckBadToken(t *testing.T) {
	isolate(t)
	srv := useFakeAPI(t)
	srv.SetToken("a-different-token")

	_, err := runCLI(t, "", "status", "--check")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestStatusCheckRequiresToken(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "", "status", "--check")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestDeployCmdNoWait(t *testing.T) {
	isolate(t)
	srv := useFakeAPI(t)
	srv.AddSnapshot(fakeSnapshot())

	out, err := runCLI(t, "", "deploy", "--snapshot", "123456", "--name", "gpu-1", "--tags", "ml,gpu", "--wait=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot found: gpu-base")
	assert.Contains(t, out, "Droplet Information (JSON):")
	assert.NotContains(t, out, "Waiting for droplet")

	creates := srv.Creates()
	require.Len(t, creates, 1)
	assert.Equal(t, "gpu-1", creates[0].Name)
	assert.Equal(t, []string{"ml", "gpu"}, creates[0].Tags)
	assert.True(t, creates[0].PrivateNetworking)
}

func TestDeployCmdWaits(t *testing.T) {
	isolate(t)
	srv := useFakeAPI(t)
	srv.AddSnapshot(fakeSnapshot())
	srv.SetNextID(700)
	srv.SetStatusSequence(700, "new", "new", "active")

	out, err := runCLI(t, "", "deploy", "--snapshot", "123456", "--poll-interval", "0.01", "--timeout", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Droplet is now active")
	assert.Equal(t, 3, srv.Count("GET", "/v2/droplets/700"))
}

func TestDeployCmdEnvSnapshot(t *testing.T) {
	isolate(t)
	srv := useFakeAPI(t)
	srv.AddSnapshot(fakeSnapshot())
	t.Setenv("SNAPSHOT_ID", "123456")
	t.Setenv("WAIT_FOR_ACTIVE", "false")

	_, err := runCLI(t, "", "deploy")
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Count("POST", "/v2/droplets"))
}

func TestDeployCmdErrors(t *testing.T) {
	tests := []struct {
		name    string
		token   bool
		args    []string
		wantErr error
	}{
		{"no token", false, []string{"deploy", "--snapshot", "123456"}, domain.ErrConfiguration},
		{"no snapshot", true, []string{"deploy"}, domain.ErrConfiguration},
		{"bad timeout", true, []string{"deploy", "--snapshot", "1", "--timeout", "soon"}, domain.ErrConfiguration},
		{"interval above timeout", true, []string{"deploy", "--snapshot", "1", "--timeout", "1", "--poll-interval", "5"}, domain.ErrConfiguration},
		{"unknown snapshot", true, []string{"deploy", "--snapshot", "999"}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			srv := fakeapi.New(t)
			t.Setenv("DIGITALOCEAN_API_ENDPOINT", srv.URL)
			if tt.token {
				t.Setenv("DIGITALOCEAN_API_TOKEN", fakeapi.Token)
			}

			_, err := runCLI(t, "", tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, srv.Count("POST", "/v2/droplets"))
		})
	}
}

func TestServeCmd(t *testing.T) {
	home := isolate(t)
	useFakeAPI(t)

	stdin := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_account","arguments":{}}}`,
	}, "\n") + "\n"

	out, err := runCLI(t, stdin, "serve")
	require.NoError(t, err)
	assert.Contains(t, out, `"serverInfo":{"name":"mcp-digitalocean"`)
	assert.Contains(t, out, "wait_for_droplet")
	assert.Contains(t, out, "ops@example.com")
	assert.FileExists(t, filepath.Join(home, "logs", "mcp-digitalocean.log"))
}

func TestServeCmdWritesAuditLog(t *testing.T) {
	home := isolate(t)
	useFakeAPI(t)

	stdin := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_account","arguments":{}}}` + "\n"
	_, err := runCLI(t, stdin, "serve", "--log-level", "info")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, "logs", "mcp-digitalocean.log"))
	require.NoError(t, err)
	logText := string(data)
	assert.Contains(t, logText, `"subsystem":"audit"`)
	assert.Contains(t, logText, `"event":"tool_call_start"`)
	assert.Contains(t, logText, `"event":"tool_call_end"`)
	assert.Contains(t, logText, `"tool":"get_account"`)
	assert.NotContains(t, logText, fakeapi.Token)
}

func TestServeCmdRequiresToken(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "", "serve")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestContainerCmds(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses the true and false utilities as the container runtime")
	}
	home := isolate(t)
	writeConfig := func(rt string) {
		data := "container:\n  runtime: \"" + rt + "\"\n  image: \"demo:dev\"\n"
		require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(data), 0o600))
	}

	writeConfig("true")
	out, err := runCLI(t, "", "container", "build")
	require.NoError(t, err)
	assert.Equal(t, "Built demo:dev\n", out)

	out, err = runCLI(t, "", "container", "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleaned up")

	_, err = runCLI(t, "", "container", "run")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	t.Setenv("DIGITALOCEAN_API_TOKEN", "tok")
	out, err = runCLI(t, "", "container", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Started mcp-digitalocean")

	writeConfig("false")
	_, err = runCLI(t, "", "ctr", "stop")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}
