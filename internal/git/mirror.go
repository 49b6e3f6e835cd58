package git

import (
	"fmt"
	"log"
	"net/http"
	"net/http/cgi"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ryanmoran/scriptrepository/internal"
)

// NewMirror returns a handler that serves the working copy at path read-only
// over the smart HTTP protocol, through git-http-backend CGI. Clients clone it
// with "<mount point>/.git". Pushes are refused because receive-pack is never
// enabled. Each request holds the same lock as Repository.Exclusive, so
// clients never observe a commit that is later rolled back. Returns an error if the path is not a git working copy or git is not
// found in PATH.
func NewMirror(path string, w internal.Writer) (http.Handler, error) {
	var err error
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for %q: %w\nCheck that the path exists and is accessible", path, err)
	}

	if _, err := os.Stat(filepath.Join(path, ".git")); os.IsNotExist(err) {
		return nil, fmt.Errorf("not a git repository: %q\nClone the script repository there before serving it", path)
	}

	git, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git binary not found in PATH: %w\nInstall git or ensure it's in your PATH environment variable", err)
	}

	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Printf("mirror %s %s\n", r.Method, r.URL.Path)

		h := &cgi.Handler{
			Path: git,
			Args: []string{"http-backend"},
			Dir:  path,
			Env: []string{
				"GIT_PROJECT_ROOT=" + path,
				"PATH_INFO=" + r.URL.Path,
				"QUERY_STRING=" + r.URL.RawQuery,
				"REQUEST_METHOD=" + r.Method,
				"GIT_HTTP_EXPORT_ALL=true",
			},
			Logger: log.New(w.GetWriter(), "[git mirror] ", 0),
			Stderr: w.GetWriter(),
		}

		mu := lock(path)
		mu.Lock()
		defer mu.Unlock()

		h.ServeHTTP(rw, r)
	}), nil
}
