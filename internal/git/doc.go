// Package git drives the working copies the service publishes into.
//
// Repository wraps one cloned working copy and performs the handful of git
// operations publishing needs. RunTransaction wraps a sequence of those
// operations so that a failure restores the revision the working copy had when
// the sequence began. NewMirror serves a working copy read-only over the smart
// HTTP protocol.
package git
