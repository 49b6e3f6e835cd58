// Package gittest builds throwaway git repositories for tests: a bare remote
// and a cloned working copy that tracks it, the same shape as a deployed
// script repository.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	Remote = "origin"
	Branch = "master"

	UserName  = "unittest"
	UserEmail = "builder@email.com"
)

type Fixture struct {
	t testing.TB

	// Remote is the path of the bare repository that plays the central repository.
	Remote string

	// Root is the path of a working copy cloned from Remote.
	Root string
}

// NewFixture creates a bare remote with one initial commit on master containing
// README.md, and clones it into a working copy.
func NewFixture(t testing.TB) Fixture {
	t.Helper()

	base := t.TempDir()
	f := Fixture{
		t:      t,
		Remote: filepath.Join(base, "remote.git"),
		Root:   filepath.Join(base, "working-copy"),
	}

	f.Git(base, "init", "--bare", f.Remote)
	f.Git(f.Remote, "symbolic-ref", "HEAD", "refs/heads/"+Branch)

	seed := filepath.Join(base, "seed")
	f.Git(base, "init", seed)
	f.Git(seed, "symbolic-ref", "HEAD", "refs/heads/"+Branch)
	require.NoError(t, os.WriteFile(filepath.Join(seed, "README.md"), []byte("foo"), 0644))
	f.Git(seed, "add", ".")
	f.Git(seed, "commit", "-m", "Initial commit")
	f.Git(seed, "remote", "add", Remote, f.Remote)
	f.Git(seed, "push", Remote, Branch)

	f.Git(base, "clone", f.Remote, f.Root)

	return f
}

// Git runs git in dir with a fixed test identity and fails the test if the
// command fails. It returns the trimmed combined output.
func (f Fixture) Git(dir string, args ...string) string {
	f.t.Helper()

	output, err := f.run(dir, nil, args...)
	require.NoError(f.t, err, "git %s: %s", strings.Join(args, " "), output)

	return output
}

// GitAs runs git in dir as the given author and committer.
func (f Fixture) GitAs(dir, name, email string, args ...string) string {
	f.t.Helper()

	output, err := f.run(dir, []string{
		"GIT_AUTHOR_NAME=" + name,
		"GIT_AUTHOR_EMAIL=" + email,
		"GIT_COMMITTER_NAME=" + name,
		"GIT_COMMITTER_EMAIL=" + email,
	}, args...)
	require.NoError(f.t, err, "git %s: %s", strings.Join(args, " "), output)

	return output
}

func (f Fixture) run(dir string, env []string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+UserName,
		"GIT_AUTHOR_EMAIL="+UserEmail,
		"GIT_COMMITTER_NAME="+UserName,
		"GIT_COMMITTER_EMAIL="+UserEmail,
		"GIT_TERMINAL_PROMPT=0",
	)
	cmd.Env = append(cmd.Env, env...)

	output, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(output)), err
}

// Clone makes a second, independent working copy of the remote, standing in
// for another contributor.
func (f Fixture) Clone() string {
	f.t.Helper()

	dir := filepath.Join(f.t.TempDir(), "other-clone")
	f.Git(filepath.Dir(dir), "clone", f.Remote, dir)

	return dir
}

// CommitFile writes content to rel inside dir, commits it as the given author
// and pushes it to the remote.
func (f Fixture) CommitFile(dir, rel, content, name, email string) {
	f.t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(f.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(f.t, os.WriteFile(path, []byte(content), 0644))

	f.Git(dir, "add", "--", rel)
	f.GitAs(dir, name, email, "commit", "-m", "Added "+rel)
	f.Git(dir, "push", Remote, Branch)
}

// Head returns the commit id HEAD points at in dir.
func (f Fixture) Head(dir string) string {
	f.t.Helper()

	return f.Git(dir, "rev-parse", "HEAD")
}

// RemoteHead returns the commit id of master in the remote.
func (f Fixture) RemoteHead() string {
	f.t.Helper()

	return f.Git(f.Remote, "rev-parse", Branch)
}

// RemoteFile returns the content of rel at the tip of the remote's master, and
// whether it exists there.
func (f Fixture) RemoteFile(rel string) (string, bool) {
	f.t.Helper()

	output, err := f.run(f.Remote, nil, "show", Branch+":"+rel)
	if err != nil {
		return "", false
	}

	return output, true
}

// LastCommit returns "<author name> <author email>|<committer name>|<subject>"
// for the tip of the remote's master.
func (f Fixture) LastCommit() string {
	f.t.Helper()

	return f.Git(f.Remote, "log", "-1", "--format=%an <%ae>|%cn|%s", Branch)
}
