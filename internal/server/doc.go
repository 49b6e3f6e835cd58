// Package server exposes the publishing endpoint over HTTP.
//
// Every response carries the same JSON document. StatusFor maps failure kinds
// to HTTP statuses; failures of the service itself are logged in full and
// answered with a generic message.
package server
