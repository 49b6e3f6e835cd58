package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ryanmoran/scriptrepository/internal/failure"
	"github.com/ryanmoran/scriptrepository/internal/process"
)

// Identity is a name and email pair as git records it for authors and committers.
type Identity struct {
	Name  string
	Email string
}

// String renders the identity as "Name <email>".
func (i Identity) String() string {
	return fmt.Sprintf("%s <%s>", i.Name, i.Email)
}

// CommitRecord describes one published change. Author is the submitter;
// Committer is the identity of the service recording the change.
type CommitRecord struct {
	Author     Identity
	Committer  Identity
	Message    string
	Files      []string
	IsAddition bool
}

// locks serialises access to working copies within this process, one mutex per
// absolute root path.
var locks sync.Map

type Repository struct {
	root   string
	remote string
	branch string
	runner process.Runner
}

// Open returns a Repository for the working copy at root, tracking branch on
// remote. The working copy must already have been cloned; Open fails with a
// repository error otherwise.
func Open(root, remote, branch string, runner process.Runner) (Repository, error) {
	path, err := filepath.Abs(root)
	if err != nil {
		return Repository{}, failure.NewRepository(fmt.Errorf("failed to resolve absolute path for %q: %w", root, err))
	}

	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return Repository{}, failure.NewRepository(fmt.Errorf("unable to find git repository at %q: %w\nIt must have been cloned first", path, err))
	}

	return Repository{
		root:   path,
		remote: remote,
		branch: branch,
		runner: runner,
	}, nil
}

func lock(root string) *sync.Mutex {
	value, _ := locks.LoadOrStore(root, &sync.Mutex{})
	return value.(*sync.Mutex)
}

// Root returns the absolute path of the working copy.
func (r Repository) Root() string {
	return r.root
}

// Upstream returns the "remote/branch" reference the working copy follows.
func (r Repository) Upstream() string {
	return r.remote + "/" + r.branch
}

func (r Repository) git(ctx context.Context, args ...string) (string, error) {
	output, err := r.runner.Run(ctx, r.root, "git", args...)
	if err != nil {
		return output, failure.NewRepository(fmt.Errorf("failed to run git %s in %q: %w", subcommand(args), r.root, err))
	}

	return output, nil
}

// subcommand skips leading "-c key=value" pairs.
func subcommand(args []string) string {
	for len(args) > 2 && args[0] == "-c" {
		args = args[2:]
	}

	return args[0]
}

// Exclusive runs fn while holding the lock for this working copy. Every request
// that touches a working copy must do so inside Exclusive for the whole span
// from synchronisation to push.
func (r Repository) Exclusive(fn func() error) error {
	mu := lock(r.root)
	mu.Lock()
	defer mu.Unlock()

	return fn()
}

// CurrentRevision returns the commit id HEAD points at.
func (r Repository) CurrentRevision(ctx context.Context) (string, error) {
	output, err := r.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(output), nil
}

// ResetHard discards every local change to tracked files and moves the working
// copy to revision.
func (r Repository) ResetHard(ctx context.Context, revision string) error {
	_, err := r.git(ctx, "reset", "--hard", revision)
	return err
}

// SyncWithRemote throws away local drift and brings the working copy to the tip
// of the upstream branch.
func (r Repository) SyncWithRemote(ctx context.Context) error {
	if err := r.ResetHard(ctx, r.Upstream()); err != nil {
		return err
	}

	_, err := r.git(ctx, "pull", "--rebase", r.remote, r.branch)
	return err
}

// Stage adds paths, relative to the root, to the index.
func (r Repository) Stage(ctx context.Context, paths []string) error {
	_, err := r.git(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

// Unstage removes paths, relative to the root, from the index and the working tree.
func (r Repository) Unstage(ctx context.Context, paths []string) error {
	_, err := r.git(ctx, append([]string{"rm", "--"}, paths...)...)
	return err
}

// Commit records the staged changes. The committer identity is passed as
// configuration for this invocation only.
func (r Repository) Commit(ctx context.Context, record CommitRecord) error {
	_, err := r.git(ctx,
		"-c", "user.name="+record.Committer.Name,
		"-c", "user.email="+record.Committer.Email,
		"commit",
		"--author="+record.Author.String(),
		"--message="+record.Message,
	)
	return err
}

// Push sends the tracked branch to the remote.
func (r Repository) Push(ctx context.Context) error {
	_, err := r.git(ctx, "push", r.remote, r.branch)
	return err
}

// FileOwner returns the author of the most recent commit that touched path.
// A path no commit has touched yields the zero Identity.
func (r Repository) FileOwner(ctx context.Context, path string) (Identity, error) {
	output, err := r.git(ctx, "log", "-1", "--format=%an%n%ae", "--", path)
	if err != nil {
		return Identity{}, err
	}

	name, email, _ := strings.Cut(strings.TrimRight(output, "\n"), "\n")
	return Identity{Name: name, Email: email}, nil
}
