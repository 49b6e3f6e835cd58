package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ryanmoran/scriptrepository/internal/failure"
)

const (
	SuccessMessage     = "success"
	ReadyMessage       = "Endpoint is ready to accept form uploads."
	ServerErrorMessage = "Server Error. Please contact Mantid support."

	// DateLayout formats pub_date, for example 2024-Mar-05 14:07:00.
	DateLayout = "2006-Jan-02 15:04:05"

	ContentType = "application/json; charset=utf-8"
)

// Response is the body of every reply from the publishing endpoint.
type Response struct {
	Message       string `json:"message"`
	Detail        string `json:"detail"`
	PublishedDate string `json:"pub_date"`
	Shell         string `json:"shell"`
}

// StatusFor returns the HTTP status a failure of the given kind is answered with.
func StatusFor(kind failure.Kind) int {
	switch kind {
	case failure.Validation, failure.Permission:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// FailureResponse builds the reply for err. Client errors keep their summary
// and detail; everything else gets the generic server error message.
func FailureResponse(err error) (int, Response) {
	status := StatusFor(failure.KindOf(err))
	if status != http.StatusBadRequest {
		return status, Response{Message: ServerErrorMessage}
	}

	failed, _ := failure.As(err)
	return status, Response{
		Message: failed.Summary,
		Detail:  failed.Detail,
	}
}

func write(rw http.ResponseWriter, status int, response Response) error {
	body, err := json.Marshal(response)
	if err != nil {
		return err
	}

	rw.Header().Set("Content-Type", ContentType)
	rw.Header().Set("Content-Length", strconv.Itoa(len(body)))
	rw.WriteHeader(status)

	_, err = rw.Write(body)
	return err
}
