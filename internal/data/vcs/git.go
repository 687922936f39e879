package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var ErrNotRepository = errors.New("not a git repository")

// ResolveMetadata returns HEAD's short hash and commit time for dir, or zero
// values when dir is not inside a repository.
func ResolveMetadata(ctx context.Context, dir string) (string, time.Time) {
	commitHash, _ := runGit(ctx, dir, "rev-parse", "--short=12", "HEAD")
	commitTimeRaw, _ := runGit(ctx, dir, "show", "-s", "--format=%cI", "HEAD")
	if commitHash == "" || commitTimeRaw == "" {
		return "", time.Time{}
	}

	commitTime, err := time.Parse(time.RFC3339, commitTimeRaw)
	if err != nil {
		return commitHash, time.Time{}
	}
	return commitHash, commitTime.UTC()
}

// CommitFile stages path and commits it alone. It returns the new short hash,
// or "" when the file is unchanged.
func CommitFile(ctx context.Context, path, message string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(abs)

	if _, err := runGit(ctx, dir, "rev-parse", "--is-inside-work-tree"); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}
	if _, err := runGit(ctx, dir, "add", "--", abs); err != nil {
		return "", fmt.Errorf("git add %s: %w", abs, err)
	}
	// diff --quiet exits 0 when nothing is staged for the file.
	if _, err := runGit(ctx, dir, "diff", "--cached", "--quiet", "--", abs); err == nil {
		return "", nil
	}
	if _, err := runGit(ctx, dir, "commit", "-m", message, "--", abs); err != nil {
		return "", fmt.Errorf("git commit %s: %w", abs, err)
	}
	return runGit(ctx, dir, "rev-parse", "--short=12", "HEAD")
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}
