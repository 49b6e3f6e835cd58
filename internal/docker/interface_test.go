package docker_test

import (
	"github.com/moby/moby/client"
	"github.com/ryanmoran/scriptrepository/internal/docker"
	"github.com/ryanmoran/scriptrepository/internal/process"
)

// Compile-time check that *client.Client implements DockerClient interface
var _ docker.DockerClient = (*client.Client)(nil)

var _ process.Runner = docker.Runner{}
