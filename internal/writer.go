package internal

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Writer provides methods for output operations that library code needs.
// This allows callers to control where and how output is written, rather than
// forcing library code to use global state like fmt.Print or log.Fatal.
type Writer interface {
	// Printf writes a formatted message to the output stream.
	Printf(format string, v ...interface{})

	// Println writes a message with a newline to the output stream.
	Println(v ...interface{})

	// Warningf writes a formatted warning message to the error stream.
	Warningf(format string, v ...interface{})

	// Errorf writes a formatted error message to the error stream.
	// Unlike a fatal log call it never terminates the process.
	Errorf(format string, v ...interface{})

	// GetWriter returns the underlying io.Writer for direct writing.
	GetWriter() io.Writer
}

// StandardWriter implements Writer using standard output/error streams.
type StandardWriter struct {
	out   io.Writer
	err   io.Writer
	clock func() time.Time
}

// NewStandardWriter creates a Writer that outputs to stdout and stderr.
func NewStandardWriter() *StandardWriter {
	return &StandardWriter{
		out: os.Stdout,
		err: os.Stderr,
	}
}

// NewCustomWriter creates a Writer with custom output streams.
// The out stream is used for normal output, while err is used for warnings and errors.
func NewCustomWriter(out, err io.Writer) *StandardWriter {
	return &StandardWriter{
		out: out,
		err: err,
	}
}

// NewLogWriter creates a Writer for long-running processes that stamps every
// line with the current UTC time.
func NewLogWriter(out, err io.Writer) *StandardWriter {
	return &StandardWriter{
		out:   out,
		err:   err,
		clock: time.Now,
	}
}

func (w *StandardWriter) stamp() string {
	if w.clock == nil {
		return ""
	}

	return w.clock().UTC().Format("2006-01-02 15:04:05 ")
}

// Printf writes a formatted message to the output stream.
func (w *StandardWriter) Printf(format string, v ...interface{}) {
	fmt.Fprintf(w.out, w.stamp()+format, v...)
}

// Println writes a message with a newline to the output stream.
func (w *StandardWriter) Println(v ...interface{}) {
	fmt.Fprint(w.out, w.stamp())
	fmt.Fprintln(w.out, v...)
}

// Warningf writes a formatted warning message to the error stream with a "Warning: " prefix.
func (w *StandardWriter) Warningf(format string, v ...interface{}) {
	fmt.Fprintf(w.err, w.stamp()+"Warning: "+format+"\n", v...)
}

// Errorf writes a formatted error message to the error stream with an "Error: " prefix.
func (w *StandardWriter) Errorf(format string, v ...interface{}) {
	fmt.Fprintf(w.err, w.stamp()+"Error: "+format+"\n", v...)
}

// GetWriter returns the underlying io.Writer for direct writing to the output stream.
func (w *StandardWriter) GetWriter() io.Writer {
	return w.out
}

type prefixWriter struct {
	Writer
	prefix string
}

// WithPrefix returns a Writer that puts "[prefix] " in front of every message
// written through w.
func WithPrefix(w Writer, prefix string) Writer {
	return prefixWriter{Writer: w, prefix: "[" + prefix + "] "}
}

func (w prefixWriter) Printf(format string, v ...interface{}) {
	w.Writer.Printf(w.prefix+format, v...)
}

func (w prefixWriter) Println(v ...interface{}) {
	w.Writer.Println(append([]interface{}{w.prefix[:len(w.prefix)-1]}, v...)...)
}

func (w prefixWriter) Warningf(format string, v ...interface{}) {
	w.Writer.Warningf(w.prefix+format, v...)
}

func (w prefixWriter) Errorf(format string, v ...interface{}) {
	w.Writer.Errorf(w.prefix+format, v...)
}
