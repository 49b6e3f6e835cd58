package internal

// SessionID identifies one handled request in log lines.
type SessionID string

// RunnerKind selects where version-control commands are executed.
type RunnerKind string

const (
	// ExecRunner runs git as a host child process.
	ExecRunner RunnerKind = "exec"

	// DockerRunner runs git inside a throwaway container.
	DockerRunner RunnerKind = "docker"
)
