// Package process runs external commands on behalf of the repository layer.
//
// A Runner executes one child process with its working directory scoped to the
// call and returns the combined stdout and stderr. ExecRunner runs the child on
// the host; the docker package provides a containerized alternative.
package process
