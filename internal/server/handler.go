package server

import (
	"context"
	"net/http"

	"github.com/ryanmoran/scriptrepository/internal"
	"github.com/ryanmoran/scriptrepository/internal/publish"
	"github.com/ryanmoran/scriptrepository/internal/request"
)

// Handler serves the publishing endpoint.
type Handler struct {
	service publish.Service
	writer  internal.Writer
}

func NewHandler(service publish.Service, w internal.Writer) Handler {
	return Handler{
		service: service,
		writer:  w,
	}
}

func (h Handler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	w := internal.WithPrefix(h.writer, internal.GenerateSession().String())
	w.Printf("received %s %s from %s\n", r.Method, r.URL.RequestURI(), r.RemoteAddr)

	if r.Method != http.MethodPost {
		h.reply(rw, w, http.StatusMethodNotAllowed, Response{Message: ReadyMessage})
		return
	}

	// A command that has started must finish, even if the client goes away.
	ctx := context.WithoutCancel(r.Context())

	form, err := request.ParseForm(r, request.MaxFileSize+request.FormOverhead)
	if err != nil {
		h.fail(rw, w, err, true)
		return
	}

	command, err := request.Classify(form, r.URL.Query())
	if err != nil {
		h.fail(rw, w, err, true)
		return
	}
	w.Printf("%s of %s by %s <%s> (debug=%t)\n", command.Kind, command.TargetPath, command.Author, command.Email, command.Debug)

	outcome, err := h.service.WithWriter(w).Execute(ctx, command)
	if err != nil {
		h.fail(rw, w, err, false)
		return
	}

	response := Response{Message: SuccessMessage}
	if outcome.Kind == request.Upload {
		response.PublishedDate = outcome.PublishedAt.UTC().Format(DateLayout)
	}
	w.Printf("%s of %s succeeded at %s\n", outcome.Kind, outcome.TargetPath, outcome.Revision)

	h.reply(rw, w, http.StatusOK, response)
}

// fail answers with the response for err. Failures raised before the command
// reached the publisher have not been logged yet.
func (h Handler) fail(rw http.ResponseWriter, w internal.Writer, err error, log bool) {
	status, response := FailureResponse(err)
	if log {
		if status == http.StatusBadRequest {
			w.Warningf("rejected request: %v", err)
		} else {
			w.Errorf("failed to read request: %v", err)
		}
	}

	h.reply(rw, w, status, response)
}

func (h Handler) reply(rw http.ResponseWriter, w internal.Writer, status int, response Response) {
	if err := write(rw, status, response); err != nil {
		w.Warningf("failed to write response: %v", err)
	}
}
