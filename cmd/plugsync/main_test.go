package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openmined/plugsync/internal/client/config"
	"github.com/openmined/plugsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) (path string, env []string) {
	t.Helper()
	dir := t.TempDir()
	path = filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path, []string{
		"HOME=" + dir,
		"PLUGSYNC_CONFIG_PATH=" + path,
	}
}

func fakePlugAPI(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("id-%d", n)})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestVersionCommand(t *testing.T) {
	cmd := &cobra.Command{Use: "plugsync"}
	cmd.AddCommand(newVersionCmd())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, version.DetailedWithApp(), strings.TrimSpace(out.String()))
}

func TestConfigPathCommand(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(configPathEnv, "/from/env.toml")

		cmd := &cobra.Command{Use: "plugsync"}
		cmd.PersistentFlags().StringP("config", "c", "", "")
		cmd.AddCommand(newConfigPathCmd())

		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"config-path", "--config", "/from/flag.toml"})

		require.NoError(t, cmd.Execute())
		assert.Equal(t, "/from/flag.toml", strings.TrimSpace(out.String()))
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv(configPathEnv, "/from/env.toml")

		cmd := &cobra.Command{Use: "plugsync"}
		cmd.PersistentFlags().StringP("config", "c", "", "")
		cmd.AddCommand(newConfigPathCmd())

		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"config-path"})

		require.NoError(t, cmd.Execute())
		assert.Equal(t, "/from/env.toml", strings.TrimSpace(out.String()))
	})
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitConfigError, exitCode(config.WrapConfigError("workers", fmt.Errorf("bad"))))
	assert.Equal(t, exitError, exitCode(fmt.Errorf("boom")))
}

func TestOnce_SyncsFiles(t *testing.T) {
	srv, calls := fakePlugAPI(t)

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.py"), []byte("print(1)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.md"), []byte("# no\n"), 0o644))

	_, env := writeConfig(t, fmt.Sprintf(`
directories = [%q]
file_types = ["py"]
server_url = %q
retry_count = 0

[credential]
env = "PLUGSYNC_TEST_KEY"
`, src, srv.URL))
	env = append(env, "PLUGSYNC_TEST_KEY=secret")

	out, code := runCLI(t, env, "once")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "created    1")
	assert.Equal(t, int32(2), calls.Load(), "one upload and one create")
}

func TestOnce_ConfigErrors(t *testing.T) {
	src := t.TempDir()

	tests := []struct {
		name   string
		config string
		env    []string
	}{
		{
			name:   "no directories",
			config: `file_types = ["py"]`,
		},
		{
			name:   "no credential",
			config: fmt.Sprintf("directories = [%q]\nfile_types = [\"py\"]\n[credential]\nenv = \"PLUGSYNC_TEST_UNSET\"\n", src),
		},
		{
			name:   "bad workers env",
			config: fmt.Sprintf("directories = [%q]\nfile_types = [\"py\"]\n", src),
			env:    []string{"PLUGSYNC_WORKERS=0"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, env := writeConfig(t, tc.config)
			out, code := runCLI(t, append(env, tc.env...), "once")
			assert.Equal(t, exitConfigError, code, out)
		})
	}
}

func TestOnce_MissingConfigFlag(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.toml")

	out, code := runCLI(t, []string{"HOME=" + dir}, "once", "--config", missing)
	assert.Equal(t, exitConfigError, code, out)
	assert.Contains(t, out, "does not exist")
}

func TestOnce_RemoteDownExitsNonZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.py"), []byte("print(1)\n"), 0o644))

	_, env := writeConfig(t, fmt.Sprintf(`
directories = [%q]
file_types = ["py"]
server_url = %q
retry_count = 0

[credential]
env = "PLUGSYNC_TEST_KEY"
`, src, srv.URL))
	env = append(env, "PLUGSYNC_TEST_KEY=secret")

	out, code := runCLI(t, env, "once")
	assert.Equal(t, exitError, code, out)
	assert.Contains(t, out, "failed     1")
}
