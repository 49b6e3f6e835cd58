// Package internal contains shared types and utilities for the script
// repository service.
//
// It provides configuration loading, request session identifiers, cleanup
// orchestration, and the output abstraction used as the logging sink across
// the git, publish and server packages.
package internal
