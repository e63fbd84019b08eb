package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
)

func TestLoadConfigFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("MIRROR_DATABASE", "/from/env.db")
	t.Setenv("MIRROR_SKIP_LARGER_THAN", "1M")
	t.Setenv("GIT_TIMEOUT", "10m")

	db := filepath.Join(t.TempDir(), "state.db")
	require.NoError(t, rootCmd.ParseFlags([]string{"--database", db, "--git-timeout", "5m"}))

	cfg, err := loadConfig(rootCmd)
	require.NoError(t, err)
	assert.Equal(t, db, cfg.DatabasePath)
	assert.Equal(t, 5*time.Minute, cfg.GitTimeout)
	assert.Equal(t, "1M", cfg.SkipLargerThan, "unset flags keep the environment value")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &domain.Report{
		Account:   "octocat",
		Cloned:    2,
		Unchanged: 5,
		Failed:    1,
		Failures:  []domain.Failure{{Repo: "broken", Err: errors.New("clone failed")}},
	})

	out := buf.String()
	assert.Contains(t, out, "Mirror run for octocat")
	assert.Contains(t, out, "Cloned")
	assert.Contains(t, out, "broken")
	assert.Contains(t, out, "clone failed")
}

func TestPrintMirrors(t *testing.T) {
	var buf bytes.Buffer
	printMirrors(&buf, nil)
	assert.Equal(t, "No mirrored repositories\n", buf.String())

	buf.Reset()
	printMirrors(&buf, []*domain.MirrorRecord{{
		Name:       "foo",
		LocalPath:  "/srv/git/foo.git",
		MirroredAt: time.Now().Add(-2 * time.Hour),
	}})
	out := buf.String()
	assert.Contains(t, out, "/srv/git/foo.git")
	assert.Contains(t, out, "2 hours ago")
}

// runCLI runs the mirror command for octocat against a fake GitHub API
// answering the repository listing with status and body.
func runCLI(t *testing.T, status int, body string) (string, error) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/octocat/repos" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)

	t.Setenv("GITHUB_API_URL", server.URL)
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("MIRROR_CONFIG", "")
	t.Setenv("STORAGE_TYPE", "sqlite")
	t.Setenv("LOG_LEVEL", "error")

	dir := t.TempDir()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"--database", filepath.Join(dir, "state.db"),
		"--skip-larger-than", "1K",
		"--git-timeout", "30s",
		"--retries", "0",
		"octocat", filepath.Join(dir, "mirrors"),
	})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	_, err := rootCmd.ExecuteC()
	return out.String(), err
}

func TestMirrorCommandExitStatus(t *testing.T) {
	t.Run("listing fails", func(t *testing.T) {
		out, err := runCLI(t, http.StatusUnauthorized, `{"message": "Bad credentials"}`)
		require.Error(t, err)
		assert.True(t, apperrors.IsRemoteUnavailable(err), "got %v", err)
		assert.NotContains(t, out, "Mirror run for", "nothing to report before any repository was listed")
	})

	t.Run("clone fails", func(t *testing.T) {
		out, err := runCLI(t, http.StatusOK, `[
  {"name": "big", "clone_url": "https://github.com/octocat/big.git", "size": 4096},
  {"name": "nope", "clone_url": "https://127.0.0.1/octocat/nope.git", "size": 0}
]`)
		require.Error(t, err)
		assert.Equal(t, "1 of 2 repositories failed", err.Error())
		assert.Contains(t, out, "Mirror run for octocat")
		assert.Contains(t, out, "nope")
	})

	t.Run("every repository handled", func(t *testing.T) {
		out, err := runCLI(t, http.StatusOK, `[
  {"name": "big", "clone_url": "https://github.com/octocat/big.git", "size": 4096},
  {"name": "bigger", "clone_url": "https://github.com/octocat/bigger.git", "size": 8192}
]`)
		require.NoError(t, err)
		assert.Contains(t, out, "Mirror run for octocat")
		assert.Contains(t, out, "Skipped")
	})

	t.Run("no repositories", func(t *testing.T) {
		out, err := runCLI(t, http.StatusOK, `[]`)
		require.NoError(t, err)
		assert.Contains(t, out, "Mirror run for octocat")
	})
}
