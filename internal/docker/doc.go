// Package docker runs the git commands of a working copy inside short-lived
// containers instead of on the host.
//
// Each command gets its own container from a git image, with the working copy
// bind mounted at the same path it has on the host. The Runner type satisfies
// process.Runner, so the git package does not know where its commands run.
package docker
