package docker

import (
	"context"
	"fmt"
	"os"

	"github.com/moby/moby/client"
	"github.com/ryanmoran/scriptrepository/internal"
)

type Client struct {
	client DockerClient
}

// NewClient creates a Client that wraps the provided Docker client interface.
func NewClient(dockerClient DockerClient) Client {
	return Client{
		client: dockerClient,
	}
}

// NewDefaultClient creates a Client with a real Docker client from the environment.
func NewDefaultClient() (Client, error) {
	cli, err := client.New(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return Client{}, fmt.Errorf("failed to create docker client: %w\nEnsure Docker is running and DOCKER_HOST is set correctly", err)
	}

	return NewClient(cli), nil
}

// Close closes the underlying Docker client connection.
func (c Client) Close() error {
	return c.client.Close()
}

// Ping pings the Docker daemon and returns the API version if successful.
func (c Client) Ping(ctx context.Context) (string, error) {
	ping, err := c.client.Ping(ctx, client.PingOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to ping docker daemon: %w\nEnsure Docker is running and DOCKER_HOST is set correctly", err)
	}

	return ping.APIVersion, nil
}

// Runner returns a Runner that executes commands in containers created from
// image. Every container mounts the command's working directory plus the
// extra volumes, given in "host:container" form.
func (c Client) Runner(image string, volumes []string, w internal.Writer) Runner {
	return Runner{
		client:  c.client,
		image:   image,
		volumes: volumes,
		user:    fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
		writer:  w,
	}
}
