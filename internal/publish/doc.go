// Package publish applies a classified Command to the script repository.
//
// Service.Execute finds the working copy for the command, synchronises it with
// the remote and then, inside a transaction, writes or removes the file,
// commits the change and pushes it. Any failure leaves the working copy at the
// revision it had before the command started.
package publish
