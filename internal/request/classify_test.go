package request_test

import (
	"bytes"
	"net/url"
	"testing"

	"github.com/ryanmoran/scriptrepository/internal/failure"
	"github.com/ryanmoran/scriptrepository/internal/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadForm(values url.Values, file *request.File) request.Form {
	form := request.Form{Values: values, Files: map[string]request.File{}}
	if file != nil {
		form.Files["file"] = *file
	}

	return form
}

func validUpload() request.Form {
	return uploadForm(url.Values{
		"author":  {"Joe Bloggs"},
		"mail":    {"first.last@domain.com"},
		"comment": {"Added new file"},
		"path":    {"./muon"},
	}, &request.File{Filename: "userscript.py", Content: []byte("print(1)\n")})
}

func validationError(t *testing.T, err error) *failure.Error {
	t.Helper()

	failed, ok := failure.As(err)
	require.True(t, ok, "expected a tagged failure, got %v", err)
	require.Equal(t, failure.Validation, failed.Kind)

	return failed
}

func TestClassify(t *testing.T) {
	t.Run("uploads", func(t *testing.T) {
		t.Run("builds an upload command", func(t *testing.T) {
			command, err := request.Classify(validUpload(), nil)
			require.NoError(t, err)

			assert.Equal(t, request.Command{
				Kind:       request.Upload,
				Author:     "Joe Bloggs",
				Email:      "first.last@domain.com",
				Comment:    "Added new file",
				TargetPath: "muon/userscript.py",
				Payload:    []byte("print(1)\n"),
			}, command)
		})

		t.Run("places files given the root folder at the top of the repository", func(t *testing.T) {
			form := validUpload()
			form.Values.Set("path", "./")

			command, err := request.Classify(form, nil)
			require.NoError(t, err)
			assert.Equal(t, "userscript.py", command.TargetPath)
		})

		t.Run("strips directories from the uploaded filename", func(t *testing.T) {
			for _, filename := range []string{"../../etc/passwd", `C:\Users\joe\passwd`} {
				form := validUpload()
				form.Files["file"] = request.File{Filename: filename, Content: []byte("x")}

				command, err := request.Classify(form, nil)
				require.NoError(t, err)
				assert.Equal(t, "muon/passwd", command.TargetPath)
			}
		})

		t.Run("accepts a payload of exactly the maximum size", func(t *testing.T) {
			form := validUpload()
			form.Files["file"] = request.File{Filename: "big.py", Content: bytes.Repeat([]byte("1"), request.MaxFileSize)}

			_, err := request.Classify(form, nil)
			require.NoError(t, err)
		})
	})

	t.Run("removals", func(t *testing.T) {
		t.Run("the removal field selects a removal", func(t *testing.T) {
			form := uploadForm(url.Values{
				"author":  {"Joe Bloggs"},
				"mail":    {"first.last@domain.com"},
				"comment": {"Removed file"},
				"file_n":  {"muon/./userscript.py"},
			}, nil)

			command, err := request.Classify(form, nil)
			require.NoError(t, err)

			assert.Equal(t, request.Command{
				Kind:       request.Remove,
				Author:     "Joe Bloggs",
				Email:      "first.last@domain.com",
				Comment:    "Removed file",
				TargetPath: "muon/userscript.py",
			}, command)
		})

		t.Run("only the removal fields are checked", func(t *testing.T) {
			form := uploadForm(url.Values{"file_n": {""}}, nil)

			_, err := request.Classify(form, nil)
			failed := validationError(t, err)
			assert.Equal(t, "Missing fields: author,mail,comment\nInvalid fields: file_n", failed.Detail)
		})

		t.Run("rejects paths outside the repository", func(t *testing.T) {
			for _, target := range []string{"/etc/passwd", "../outside.py", "muon/../../outside.py", ".", "./", ".git/config", "muon/.GIT/hooks/pre-commit", `.git\config`, ".git./config"} {
				form := uploadForm(url.Values{
					"author":  {"Joe Bloggs"},
					"mail":    {"first.last@domain.com"},
					"comment": {"Removed file"},
					"file_n":  {target},
				}, nil)

				_, err := request.Classify(form, nil)
				failed := validationError(t, err)
				assert.Equal(t, "Invalid fields: file_n", failed.Detail, target)
			}
		})
	})

	t.Run("the debug flag needs a value", func(t *testing.T) {
		command, err := request.Classify(validUpload(), url.Values{"debug": {"1"}})
		require.NoError(t, err)
		assert.True(t, command.Debug)

		command, err = request.Classify(validUpload(), url.Values{"debug": {""}})
		require.NoError(t, err)
		assert.False(t, command.Debug)
	})

	t.Run("failure cases", func(t *testing.T) {
		t.Run("when only the file is missing", func(t *testing.T) {
			form := validUpload()
			delete(form.Files, "file")

			_, err := request.Classify(form, nil)
			failed := validationError(t, err)
			assert.Equal(t, "Incomplete form information supplied.", failed.Summary)
			assert.Equal(t, "Missing fields: file", failed.Detail)
		})

		t.Run("when fields are present but empty or malformed", func(t *testing.T) {
			form := uploadForm(url.Values{
				"author":  {""},
				"mail":    {"joe.bloggs"},
				"comment": {""},
				"path":    {""},
			}, nil)

			_, err := request.Classify(form, nil)
			failed := validationError(t, err)
			assert.Equal(t, "Missing fields: file\nInvalid fields: author,mail,comment,path", failed.Detail)
		})

		t.Run("when the path is not below the repository root", func(t *testing.T) {
			for _, dir := range []string{"muon", "/muon", "./muon/../..", `./muon\..\..`} {
				form := validUpload()
				form.Values.Set("path", dir)

				_, err := request.Classify(form, nil)
				failed := validationError(t, err)
				assert.Equal(t, "Invalid fields: path", failed.Detail, dir)
			}
		})

		t.Run("when the path points into git metadata", func(t *testing.T) {
			for _, dir := range []string{"./.git", "./.git/hooks", "./muon/.Git", `./muon\.git`, "./.git ", "./.git."} {
				form := validUpload()
				form.Values.Set("path", dir)
				form.Files["file"] = request.File{Filename: "config", Content: []byte("[core]\n\tbogus = 1\n")}

				_, err := request.Classify(form, nil)
				failed := validationError(t, err)
				assert.Equal(t, "Invalid fields: path", failed.Detail, dir)
			}
		})

		t.Run("when the filename names git metadata", func(t *testing.T) {
			for _, name := range []string{".git", ".GIT", "muon/.git", `C:\scripts\.git`} {
				form := validUpload()
				form.Files["file"] = request.File{Filename: name, Content: []byte("x")}

				_, err := request.Classify(form, nil)
				failed := validationError(t, err)
				assert.Equal(t, "Invalid fields: file", failed.Detail, name)
			}
		})

		t.Run("when the identity would break the author line", func(t *testing.T) {
			for _, mail := range []string{"a@b.c> x", "a@b.c\nx", "<a@b.c>", "a b@c.d", "a@b.c\x00"} {
				form := validUpload()
				form.Values.Set("mail", mail)

				_, err := request.Classify(form, nil)
				failed := validationError(t, err)
				assert.Equal(t, "Invalid fields: mail", failed.Detail, mail)
			}

			for _, author := range []string{"Joe <evil@x.y>", "Joe\nBloggs", "Joe>", "Joe\tBloggs"} {
				form := validUpload()
				form.Values.Set("author", author)

				_, err := request.Classify(form, nil)
				failed := validationError(t, err)
				assert.Equal(t, "Invalid fields: author", failed.Detail, author)
			}
		})

		t.Run("when the file is sent as a plain value", func(t *testing.T) {
			form := validUpload()
			delete(form.Files, "file")
			form.Values.Set("file", "print(1)")

			_, err := request.Classify(form, nil)
			failed := validationError(t, err)
			assert.Equal(t, "Invalid fields: file", failed.Detail)
		})

		t.Run("when the file is empty", func(t *testing.T) {
			form := validUpload()
			form.Files["file"] = request.File{Filename: "userscript.py"}

			_, err := request.Classify(form, nil)
			failed := validationError(t, err)
			assert.Equal(t, "Invalid fields: file", failed.Detail)
		})

		t.Run("when the file has no usable name", func(t *testing.T) {
			form := validUpload()
			form.Files["file"] = request.File{Filename: "muon/", Content: []byte("x")}

			_, err := request.Classify(form, nil)
			failed := validationError(t, err)
			assert.Equal(t, "Invalid fields: file", failed.Detail)
		})

		t.Run("when the payload is over the maximum size", func(t *testing.T) {
			form := validUpload()
			form.Files["file"] = request.File{Filename: "big.py", Content: bytes.Repeat([]byte("1"), request.MaxFileSize+1)}

			_, err := request.Classify(form, nil)
			failed := validationError(t, err)
			assert.Equal(t, "File is too large.", failed.Summary)
			assert.Equal(t, "Maximum filesize is 1048576 bytes", failed.Detail)
		})

		t.Run("when the size is checked after the fields", func(t *testing.T) {
			form := validUpload()
			form.Values.Del("author")
			form.Files["file"] = request.File{Filename: "big.py", Content: bytes.Repeat([]byte("1"), request.MaxFileSize+1)}

			_, err := request.Classify(form, nil)
			failed := validationError(t, err)
			assert.Equal(t, "Missing fields: author", failed.Detail)
		})
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "upload", request.Upload.String())
	assert.Equal(t, "remove", request.Remove.String())
}
