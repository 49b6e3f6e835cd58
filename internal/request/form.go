package request

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/ryanmoran/scriptrepository/internal/failure"
)

// FormOverhead is the room left in a request body for the text fields and
// multipart framing around a file of MaxFileSize bytes.
const FormOverhead = 64 << 10

// File is one uploaded file part.
type File struct {
	Filename string
	Content  []byte
}

// Form holds the decoded fields of a submission body. Query string values are
// never included.
type Form struct {
	Values url.Values
	Files  map[string]File
}

// Has reports whether the form carries name, either as a value or as a file.
func (f Form) Has(name string) bool {
	if _, ok := f.Values[name]; ok {
		return true
	}

	_, ok := f.Files[name]
	return ok
}

// ParseForm reads the body of r, limited to maxBytes, as multipart/form-data
// or application/x-www-form-urlencoded. Other content types yield an empty
// Form. A body over the limit fails with the file-too-large validation error.
func ParseForm(r *http.Request, maxBytes int64) (Form, error) {
	form := Form{
		Values: url.Values{},
		Files:  map[string]File{},
	}

	if r.Body == nil {
		return form, nil
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return form, nil
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return Form{}, parseError(err)
		}
		defer r.MultipartForm.RemoveAll()

		for name, values := range r.MultipartForm.Value {
			form.Values[name] = values
		}

		for name, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}

			file, err := headers[0].Open()
			if err != nil {
				return Form{}, fmt.Errorf("failed to open uploaded file %q: %w", headers[0].Filename, err)
			}

			content, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				return Form{}, fmt.Errorf("failed to read uploaded file %q: %w", headers[0].Filename, err)
			}

			form.Files[name] = File{
				Filename: headers[0].Filename,
				Content:  content,
			}
		}

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return Form{}, parseError(err)
		}

		for name, values := range r.PostForm {
			form.Values[name] = values
		}
	}

	return form, nil
}

func parseError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return tooLargeError()
	}

	return failure.NewValidation(IncompleteSummary, "Unable to decode form data")
}

func tooLargeError() error {
	return failure.NewValidation(TooLargeSummary, fmt.Sprintf("Maximum filesize is %d bytes", MaxFileSize))
}
