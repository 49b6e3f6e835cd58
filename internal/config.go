package internal

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	// DefaultAddress is where the publishing endpoint listens when nothing else
	// is configured.
	DefaultAddress = ":8080"

	// DefaultRemote and DefaultBranch name the upstream the working copies are
	// synchronised with and pushed to.
	DefaultRemote = "origin"
	DefaultBranch = "master"

	// DefaultCommitterName is the service identity recorded as committer on
	// every published change. The submitter is recorded as author.
	DefaultCommitterName  = "mantid-publisher"
	DefaultCommitterEmail = "mantid-publisher@mantidproject.org"

	// DefaultRunnerImage must provide git as its entrypoint-compatible binary.
	DefaultRunnerImage = "alpine/git:latest"

	DefaultEndpoint = "http://localhost:8080/"
)

// ErrRepositoryNotConfigured is returned when the repository root required by a
// request has not been set.
var ErrRepositoryNotConfigured = errors.New("repository root is not configured")

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Committer  CommitterConfig  `mapstructure:"committer"`
	Runner     RunnerConfig     `mapstructure:"runner"`
	Mirror     MirrorConfig     `mapstructure:"mirror"`
	Client     ClientConfig     `mapstructure:"client"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type RepositoryConfig struct {
	Path      string `mapstructure:"path"`
	DebugPath string `mapstructure:"debug_path"`
	Remote    string `mapstructure:"remote"`
	Branch    string `mapstructure:"branch"`
}

type CommitterConfig struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

type RunnerConfig struct {
	Kind    RunnerKind `mapstructure:"kind"`
	Image   string     `mapstructure:"image"`
	Volumes []string   `mapstructure:"volumes"`
}

type MirrorConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ClientConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Author   string `mapstructure:"author"`
	Mail     string `mapstructure:"mail"`
}

// environmentKeys maps the environment variables understood by the service to
// their configuration keys. SCRIPT_REPOSITORY_PATH and its _DEBUG variant keep
// the names used by existing deployments.
var environmentKeys = []struct {
	name string
	key  string
}{
	{"SCRIPT_REPOSITORY_ADDRESS", "server.address"},
	{"SCRIPT_REPOSITORY_PATH", "repository.path"},
	{"SCRIPT_REPOSITORY_PATH_DEBUG", "repository.debug_path"},
	{"SCRIPT_REPOSITORY_REMOTE", "repository.remote"},
	{"SCRIPT_REPOSITORY_BRANCH", "repository.branch"},
	{"SCRIPT_REPOSITORY_COMMITTER_NAME", "committer.name"},
	{"SCRIPT_REPOSITORY_COMMITTER_EMAIL", "committer.email"},
	{"SCRIPT_REPOSITORY_RUNNER", "runner.kind"},
	{"SCRIPT_REPOSITORY_RUNNER_IMAGE", "runner.image"},
	{"SCRIPT_REPOSITORY_MIRROR", "mirror.enabled"},
	{"SCRIPT_REPOSITORY_ENDPOINT", "client.endpoint"},
	{"SCRIPT_REPOSITORY_AUTHOR", "client.author"},
	{"SCRIPT_REPOSITORY_MAIL", "client.mail"},
}

// LoadConfig builds the configuration from defaults, an optional config file and
// the given environment entries, in increasing order of precedence.
//
// When configFile is empty, SCRIPT_REPOSITORY_CONFIG is consulted, and then
// $HOME/.scriptrepository/config.<ext>; a missing default file is not an error.
// Values in environment override the file.
func LoadConfig(configFile string, environment []string) (Config, error) {
	lookup := make(map[string]string)
	for _, variable := range environment {
		key, value, ok := strings.Cut(variable, "=")
		if ok {
			lookup[key] = value
		}
	}

	v := viper.New()
	v.SetDefault("server.address", DefaultAddress)
	v.SetDefault("repository.remote", DefaultRemote)
	v.SetDefault("repository.branch", DefaultBranch)
	v.SetDefault("committer.name", DefaultCommitterName)
	v.SetDefault("committer.email", DefaultCommitterEmail)
	v.SetDefault("runner.kind", string(ExecRunner))
	v.SetDefault("runner.image", DefaultRunnerImage)
	v.SetDefault("runner.volumes", []string{})
	v.SetDefault("mirror.enabled", false)
	v.SetDefault("client.endpoint", DefaultEndpoint)

	if configFile == "" {
		configFile = lookup["SCRIPT_REPOSITORY_CONFIG"]
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %q: %w\nCheck that the file exists and is valid YAML, TOML or JSON", configFile, err)
		}
	} else if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".scriptrepository"))
		v.SetConfigName("config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config file %q: %w", v.ConfigFileUsed(), err)
			}
		}
	}

	for _, variable := range environmentKeys {
		if value, ok := lookup[variable.name]; ok {
			v.Set(variable.key, value)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate reports settings that can never work, independent of any request.
// A missing repository root is not one of them: it is reported per request.
func (c Config) Validate() error {
	switch c.Runner.Kind {
	case ExecRunner, DockerRunner:
	default:
		return fmt.Errorf("unknown runner kind %q\nUse %q or %q", c.Runner.Kind, ExecRunner, DockerRunner)
	}

	if c.Repository.Remote == "" || c.Repository.Branch == "" {
		return errors.New("repository remote and branch must not be empty")
	}

	if c.Committer.Name == "" || c.Committer.Email == "" {
		return errors.New("committer name and email must not be empty")
	}

	return nil
}

// RepositoryRoot returns the working copy a request should update: the sandbox
// copy when debug is set, the primary copy otherwise.
func (c Config) RepositoryRoot(debug bool) (string, error) {
	name, root := "SCRIPT_REPOSITORY_PATH", c.Repository.Path
	if debug {
		name, root = "SCRIPT_REPOSITORY_PATH_DEBUG", c.Repository.DebugPath
	}

	if root == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrRepositoryNotConfigured, name)
	}

	return root, nil
}
