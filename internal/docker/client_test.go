package docker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/moby/moby/client"
	"github.com/ryanmoran/scriptrepository/internal/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPing(t *testing.T) {
	t.Run("returns the negotiated API version", func(t *testing.T) {
		mock := &mockDockerClient{
			pingFunc: func(ctx context.Context, options client.PingOptions) (client.PingResult, error) {
				return client.PingResult{APIVersion: "1.52"}, nil
			},
		}

		version, err := docker.NewClient(mock).Ping(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "1.52", version)
	})

	t.Run("fails when the daemon is unreachable", func(t *testing.T) {
		mock := &mockDockerClient{
			pingFunc: func(ctx context.Context, options client.PingOptions) (client.PingResult, error) {
				return client.PingResult{}, errors.New("connection refused")
			},
		}

		_, err := docker.NewClient(mock).Ping(context.Background())
		require.ErrorContains(t, err, "failed to ping docker daemon")
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestClientClose(t *testing.T) {
	closed := false
	mock := &mockDockerClient{
		closeFunc: func() error {
			closed = true
			return nil
		},
	}

	require.NoError(t, docker.NewClient(mock).Close())
	assert.True(t, closed)
}
