// Package client submits uploads and removals to a running publishing endpoint.
package client
