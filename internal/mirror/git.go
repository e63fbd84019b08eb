package mirror

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
	"github.com/kurihiro0119/github-mirror/internal/logging"
)

// DefaultGitTimeout bounds a single git invocation.
const DefaultGitTimeout = 30 * time.Minute

// GitOptions configures a GitDriver.
type GitOptions struct {
	// GitPath is the git executable, "git" looked up in PATH by default.
	GitPath string
	// Timeout bounds each git command. Zero means DefaultGitTimeout and a
	// negative value disables the bound.
	Timeout time.Duration
	Logger  *slog.Logger
}

// GitDriver implements Driver by running the git binary.
type GitDriver struct {
	gitPath string
	timeout time.Duration
	envs    []string
	log     *slog.Logger
}

// NewGitDriver returns a Driver backed by the git executable.
func NewGitDriver(opts GitOptions) *GitDriver {
	d := &GitDriver{
		gitPath: opts.GitPath,
		timeout: opts.Timeout,
		// never wait on a credential prompt
		envs: []string{"GIT_TERMINAL_PROMPT=0"},
		log:  opts.Logger,
	}
	if d.gitPath == "" {
		d.gitPath = "git"
	}
	if d.timeout == 0 {
		d.timeout = DefaultGitTimeout
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	return d
}

func (d *GitDriver) CloneMirror(ctx context.Context, url, dest string) error {
	if err := os.RemoveAll(dest); err != nil {
		return apperrors.NewMirrorPathError(dest, "clone", fmt.Errorf("unable to remove stale directory: %w", err))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return apperrors.NewMirrorPathError(dest, "clone", err)
	}

	if _, err := d.runGitCommand(ctx, "", "clone", "--mirror", url, dest); err != nil {
		// leave nothing behind for the next attempt to trip over
		_ = os.RemoveAll(dest)
		return apperrors.NewMirrorPathError(dest, "clone", err)
	}
	return nil
}

func (d *GitDriver) FetchUpdates(ctx context.Context, dest string) error {
	if _, err := d.runGitCommand(ctx, dest, "remote", "update", "--prune"); err != nil {
		return apperrors.NewMirrorPathError(dest, "fetch", err)
	}
	return nil
}

func (d *GitDriver) SetDefaultBranch(ctx context.Context, dest, branch string) error {
	if branch == "" {
		return nil
	}
	if _, err := d.runGitCommand(ctx, dest, "symbolic-ref", "HEAD", "refs/heads/"+branch); err != nil {
		return apperrors.NewMirrorPathError(dest, "set default branch", err)
	}
	return nil
}

func (d *GitDriver) SetDescription(dest, text string) error {
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if err := os.WriteFile(filepath.Join(dest, "description"), []byte(text), 0o644); err != nil {
		return apperrors.NewMirrorPathError(dest, "set description", err)
	}
	return nil
}

// SetModificationTime sets t on the ref HEAD points at, falling back to
// packed-refs, and on the mirror directory. A repository without commits
// has neither file and only gets the directory stamped.
func (d *GitDriver) SetModificationTime(dest string, t time.Time) error {
	if t.IsZero() {
		t = time.Now()
	}

	if ref := headRefFile(dest); ref != "" {
		if err := touch(ref, t); err != nil {
			return apperrors.NewMirrorPathError(dest, "set modification time", err)
		}
	}
	if err := os.Chtimes(dest, t, t); err != nil {
		return apperrors.NewMirrorPathError(dest, "set modification time", err)
	}
	return nil
}

func (d *GitDriver) WriteHostConfig(dest, template string) error {
	if template == "" {
		return nil
	}
	if err := copyFile(template, filepath.Join(dest, HostConfigFile)); err != nil {
		return apperrors.NewMirrorPathError(dest, "write host config", err)
	}
	return nil
}

// headRefFile returns the file holding the commit HEAD resolves to, or ""
// when there is none.
func headRefFile(dest string) string {
	head, err := os.ReadFile(filepath.Join(dest, "HEAD"))
	if err == nil {
		if ref, ok := strings.CutPrefix(strings.TrimSpace(string(head)), "ref: "); ok {
			loose := filepath.Join(dest, filepath.FromSlash(ref))
			if fileExists(loose) {
				return loose
			}
		}
	}
	if packed := filepath.Join(dest, "packed-refs"); fileExists(packed) {
		return packed
	}
	return ""
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func touch(path string, t time.Time) error {
	return os.Chtimes(path, t, t)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// runGitCommand runs git with args in cwd, bounded by the driver timeout,
// and returns its trimmed stdout.
func (d *GitDriver) runGitCommand(ctx context.Context, cwd string, args ...string) (string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	cmdStr := d.gitPath + " " + strings.Join(args, " ")
	d.log.Log(ctx, logging.LevelTrace, "running command", "cwd", cwd, "cmd", cmdStr)

	cmd := exec.CommandContext(ctx, d.gitPath, args...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	outbuf := bytes.NewBuffer(nil)
	errbuf := bytes.NewBuffer(nil)
	cmd.Stdout = outbuf
	cmd.Stderr = errbuf
	cmd.Env = append(os.Environ(), d.envs...)

	start := time.Now()
	err := cmd.Run()
	runTime := time.Since(start)

	stdout := strings.TrimSpace(outbuf.String())
	stderr := strings.TrimSpace(errbuf.String())
	if ctx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("timed out after %s: %w", d.timeout, ctx.Err())
	}
	if err != nil {
		return "", fmt.Errorf("run(%s): %w { stdout: %q, stderr: %q }", cmdStr, err, stdout, stderr)
	}
	d.log.Log(ctx, logging.LevelTrace, "command result", "stdout", stdout, "stderr", stderr, "time", runTime)

	return stdout, nil
}
