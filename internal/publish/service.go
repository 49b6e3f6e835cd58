package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ryanmoran/scriptrepository/internal"
	"github.com/ryanmoran/scriptrepository/internal/failure"
	"github.com/ryanmoran/scriptrepository/internal/git"
	"github.com/ryanmoran/scriptrepository/internal/process"
	"github.com/ryanmoran/scriptrepository/internal/request"
	"github.com/zeebo/xxh3"
)

// PublicationDelay is added to the modification time of an uploaded file to
// give the date it is reported as published.
const PublicationDelay = 2 * time.Minute

const (
	PermissionSummary = "Permissions error."
	PermissionDetail  = "You are not allowed to remove this file as it belongs to another user"
)

// Settings resolves the working copy a command applies to.
type Settings interface {
	RepositoryRoot(debug bool) (string, error)
}

type Options struct {
	Remote    string
	Branch    string
	Committer git.Identity
}

// Outcome describes a command that completed. PublishedAt and Fingerprint are
// only set for uploads. Unchanged reports an upload whose content was already
// committed, so nothing was pushed.
type Outcome struct {
	Kind        request.Kind
	TargetPath  string
	Revision    string
	PublishedAt time.Time
	Fingerprint string
	Unchanged   bool
}

type Service struct {
	settings Settings
	runner   process.Runner
	options  Options
	writer   internal.Writer
}

func NewService(settings Settings, runner process.Runner, options Options, w internal.Writer) Service {
	return Service{
		settings: settings,
		runner:   runner,
		options:  options,
		writer:   w,
	}
}

// WithWriter returns a copy of the service that logs through w.
func (s Service) WithWriter(w internal.Writer) Service {
	s.writer = w
	return s
}

// Fingerprint returns the hex encoded xxh3-128 hash of content.
func Fingerprint(content []byte) string {
	sum := xxh3.Hash128(content).Bytes()
	return fmt.Sprintf("%x", sum[:])
}

// Execute applies command to its working copy. Errors are *failure.Error
// values tagged with the kind of failure.
func (s Service) Execute(ctx context.Context, command request.Command) (Outcome, error) {
	outcome, err := s.execute(ctx, command)
	if err != nil {
		s.report(command, err)
		return Outcome{}, err
	}

	return outcome, nil
}

func (s Service) execute(ctx context.Context, command request.Command) (Outcome, error) {
	root, err := s.settings.RepositoryRoot(command.Debug)
	if err != nil {
		return Outcome{}, failure.NewConfiguration(err)
	}

	repo, err := git.Open(root, s.options.Remote, s.options.Branch, s.runner)
	if err != nil {
		return Outcome{}, err
	}
	s.writer.Printf("using repository at %s\n", repo.Root())

	var outcome Outcome
	err = repo.Exclusive(func() error {
		s.writer.Printf("syncing with %s\n", repo.Upstream())
		if err := repo.SyncWithRemote(ctx); err != nil {
			return err
		}

		var err error
		switch command.Kind {
		case request.Remove:
			outcome, err = s.remove(ctx, repo, command)
		default:
			outcome, err = s.upload(ctx, repo, command)
		}
		if err != nil {
			return err
		}

		if outcome.Revision, err = repo.CurrentRevision(ctx); err != nil {
			s.writer.Warningf("failed to read the published revision: %v", err)
		}
		return nil
	})

	return outcome, err
}

func (s Service) record(command request.Command, addition bool) git.CommitRecord {
	return git.CommitRecord{
		Author:     git.Identity{Name: command.Author, Email: command.Email},
		Committer:  s.options.Committer,
		Message:    command.Comment,
		Files:      []string{command.TargetPath},
		IsAddition: addition,
	}
}

func (s Service) upload(ctx context.Context, repo git.Repository, command request.Command) (Outcome, error) {
	target := filepath.Join(repo.Root(), filepath.FromSlash(command.TargetPath))
	outcome := Outcome{
		Kind:        request.Upload,
		TargetPath:  command.TargetPath,
		Fingerprint: Fingerprint(command.Payload),
	}

	info, err := os.Stat(target)
	existed := err == nil
	if existed && info.IsDir() {
		return Outcome{}, failure.NewRepository(fmt.Errorf("cannot replace directory with a file: %q already exists as a directory", target))
	}

	created, err := missingAncestor(repo.Root(), filepath.Dir(target))
	if err != nil {
		return Outcome{}, failure.NewRepository(err)
	}

	err = git.RunTransaction(ctx, repo, func() error {
		if existed {
			unchanged, err := s.unchanged(ctx, repo, command, target, outcome.Fingerprint)
			if err != nil {
				return err
			}

			if unchanged {
				s.writer.Printf("%s is already up to date\n", command.TargetPath)
				outcome.Unchanged = true
				return outcome.stamp(target)
			}
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return failure.NewRepository(fmt.Errorf("failed to create directory for %q: %w", target, err))
		}

		if err := os.WriteFile(target, command.Payload, 0644); err != nil {
			return failure.NewRepository(fmt.Errorf("failed to write script to %q: %w", target, err))
		}
		s.writer.Printf("wrote %d bytes to %s (xxh3 %s)\n", len(command.Payload), command.TargetPath, outcome.Fingerprint)

		if err := outcome.stamp(target); err != nil {
			return err
		}

		if err := repo.Stage(ctx, []string{command.TargetPath}); err != nil {
			return err
		}

		if err := repo.Commit(ctx, s.record(command, true)); err != nil {
			return err
		}

		s.writer.Printf("pushing %s\n", command.TargetPath)
		return repo.Push(ctx)
	})
	if err != nil {
		if !existed {
			discard(s.writer, target, created)
		}
		return Outcome{}, err
	}

	return outcome, nil
}

// unchanged reports whether target is tracked and already holds content with
// the given fingerprint.
func (s Service) unchanged(ctx context.Context, repo git.Repository, command request.Command, target, fingerprint string) (bool, error) {
	current, err := os.ReadFile(target)
	if err != nil {
		return false, failure.NewRepository(fmt.Errorf("failed to read %q: %w", target, err))
	}

	if Fingerprint(current) != fingerprint {
		return false, nil
	}

	owner, err := repo.FileOwner(ctx, command.TargetPath)
	if err != nil {
		return false, err
	}

	return owner != git.Identity{}, nil
}

func (o *Outcome) stamp(target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return failure.NewRepository(fmt.Errorf("failed to stat %q: %w", target, err))
	}

	o.PublishedAt = info.ModTime().Add(PublicationDelay).UTC()
	return nil
}

func (s Service) remove(ctx context.Context, repo git.Repository, command request.Command) (Outcome, error) {
	requester := git.Identity{Name: command.Author, Email: command.Email}

	owner, err := repo.FileOwner(ctx, command.TargetPath)
	if err != nil {
		return Outcome{}, err
	}

	if owner != requester {
		s.writer.Warningf("%s asked to remove %s which belongs to %q", requester, command.TargetPath, owner.String())
		return Outcome{}, failure.NewPermission(PermissionSummary, PermissionDetail)
	}

	err = git.RunTransaction(ctx, repo, func() error {
		if err := repo.Unstage(ctx, []string{command.TargetPath}); err != nil {
			return err
		}

		if err := repo.Commit(ctx, s.record(command, false)); err != nil {
			return err
		}

		s.writer.Printf("pushing removal of %s\n", command.TargetPath)
		return repo.Push(ctx)
	})
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Kind:       request.Remove,
		TargetPath: command.TargetPath,
	}, nil
}

func (s Service) report(command request.Command, err error) {
	switch failure.KindOf(err) {
	case failure.Validation, failure.Permission:
		s.writer.Warningf("%s of %s refused: %v", command.Kind, command.TargetPath, err)
	case failure.Rollback:
		s.writer.Errorf("FATAL: %s of %s left the working copy in an unknown state: %v", command.Kind, command.TargetPath, err)
	default:
		s.writer.Errorf("%s of %s failed: %v", command.Kind, command.TargetPath, err)
	}
}

// missingAncestor returns the outermost directory between root and dir that
// does not exist yet, or "" when dir already exists.
func missingAncestor(root, dir string) (string, error) {
	var missing string
	for dir != root && len(dir) > len(root) {
		_, err := os.Stat(dir)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %q: %w", dir, err)
		}

		missing = dir
		dir = filepath.Dir(dir)
	}

	return missing, nil
}

// discard removes a file written by a failed upload together with any
// directories created for it.
func discard(w internal.Writer, target, created string) {
	path := target
	if created != "" {
		path = created
	}

	if err := os.RemoveAll(path); err != nil {
		w.Warningf("failed to remove %s after a failed upload: %v", path, err)
	}
}
