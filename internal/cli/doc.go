// Package cli builds the scriptrepository command tree: serve runs the
// publishing endpoint, publish and remove submit to a running one.
package cli
