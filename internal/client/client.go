package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	rq "github.com/parnurzeal/gorequest"
	"github.com/ryanmoran/scriptrepository/internal/request"
	"github.com/ryanmoran/scriptrepository/internal/server"
)

// DefaultTimeout bounds a whole submission, including the push the server
// performs before it replies.
const DefaultTimeout = 2 * time.Minute

// Submitter is the identity and comment attached to a submission.
type Submitter struct {
	Author  string
	Mail    string
	Comment string
}

// RejectedError is returned when the endpoint answers with anything but 200.
type RejectedError struct {
	StatusCode int
	Response   server.Response
}

func (e *RejectedError) Error() string {
	if e.Response.Detail == "" {
		return fmt.Sprintf("server rejected the request (HTTP %d): %s", e.StatusCode, e.Response.Message)
	}

	return fmt.Sprintf("server rejected the request (HTTP %d): %s\n%s", e.StatusCode, e.Response.Message, e.Response.Detail)
}

type Client struct {
	endpoint string
	timeout  time.Duration
}

func New(endpoint string) Client {
	return Client{
		endpoint: endpoint,
		timeout:  DefaultTimeout,
	}
}

// fields mirrors the form fields read by the request package.
type fields struct {
	Author  string `json:"author"`
	Mail    string `json:"mail"`
	Comment string `json:"comment"`
	Path    string `json:"path,omitempty"`
	Target  string `json:"file_n,omitempty"`
}

func (s Submitter) fields() fields {
	return fields{
		Author:  s.Author,
		Mail:    s.Mail,
		Comment: s.Comment,
	}
}

func (c Client) agent(debug bool) *rq.SuperAgent {
	agent := rq.New().Timeout(c.timeout).Post(c.endpoint)
	if debug {
		agent = agent.Query(request.DebugParameter + "=1")
	}

	return agent
}

// Upload publishes the file at path into the repository folder dir, which must
// start with "./". debug targets the sandbox repository.
func (c Client) Upload(submitter Submitter, dir, path string, debug bool) (server.Response, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return server.Response{}, fmt.Errorf("failed to read %q: %w\nCheck that the file exists and is readable", path, err)
	}

	fields := submitter.fields()
	fields.Path = dir

	agent := c.agent(debug).
		Type("multipart").
		Send(fields).
		SendFile(content, filepath.Base(path), request.FileField)

	return c.submit(agent)
}

// Remove deletes target, a path relative to the repository root. Only the
// author of the last change to target may remove it.
func (c Client) Remove(submitter Submitter, target string, debug bool) (server.Response, error) {
	fields := submitter.fields()
	fields.Target = target

	agent := c.agent(debug).
		Type("form").
		Send(fields)

	return c.submit(agent)
}

func (c Client) submit(agent *rq.SuperAgent) (server.Response, error) {
	response, body, errs := agent.End()
	if len(errs) > 0 {
		return server.Response{}, fmt.Errorf("failed to reach %s: %w\nCheck that the endpoint address is correct and the server is running", c.endpoint, errors.Join(errs...))
	}

	var decoded server.Response
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return server.Response{}, fmt.Errorf("unexpected response from %s (HTTP %d): %w", c.endpoint, response.StatusCode, err)
	}

	if response.StatusCode != http.StatusOK {
		return decoded, &RejectedError{
			StatusCode: response.StatusCode,
			Response:   decoded,
		}
	}

	return decoded, nil
}
