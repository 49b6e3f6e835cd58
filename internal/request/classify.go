package request

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/ryanmoran/scriptrepository/internal/failure"
)

// MaxFileSize is the largest upload payload accepted, in bytes.
const MaxFileSize = 1 << 20

const (
	AuthorField  = "author"
	MailField    = "mail"
	CommentField = "comment"
	PathField    = "path"
	FileField    = "file"
	RemovalField = "file_n"

	DebugParameter = "debug"
)

const (
	IncompleteSummary = "Incomplete form information supplied."
	TooLargeSummary   = "File is too large."
)

type Kind int

const (
	Upload Kind = iota
	Remove
)

func (k Kind) String() string {
	if k == Remove {
		return "remove"
	}

	return "upload"
}

// Command is a validated submission. TargetPath is slash separated, relative
// to the repository root and never escapes it. Payload is only set for uploads.
type Command struct {
	Kind       Kind
	Author     string
	Email      string
	Comment    string
	TargetPath string
	Payload    []byte
	Debug      bool
}

var mailPattern = regexp.MustCompile(`^[^@\s<>]+@[^@\s<>]+\.[^@\s<>]+$`)

type verdict int

const (
	accepted verdict = iota
	missing
	invalid
)

type rule struct {
	field string
	check func(Form) verdict
}

func valueRule(field string, valid func(string) bool) rule {
	return rule{
		field: field,
		check: func(f Form) verdict {
			values, ok := f.Values[field]
			if !ok {
				if _, ok := f.Files[field]; ok {
					return invalid
				}
				return missing
			}

			if len(values) == 0 || !valid(values[0]) {
				return invalid
			}
			return accepted
		},
	}
}

func fileRule(field string) rule {
	return rule{
		field: field,
		check: func(f Form) verdict {
			file, ok := f.Files[field]
			if !ok {
				if _, ok := f.Values[field]; ok {
					return invalid
				}
				return missing
			}

			if len(file.Content) == 0 || baseName(file.Filename) == "" {
				return invalid
			}
			return accepted
		},
	}
}

var commonRules = []rule{
	valueRule(AuthorField, isName),
	valueRule(MailField, isMail),
	valueRule(CommentField, notEmpty),
}

var uploadRules = append(commonRules[:len(commonRules):len(commonRules)],
	valueRule(PathField, isDirectory),
	fileRule(FileField),
)

var removalRules = append(commonRules[:len(commonRules):len(commonRules)],
	valueRule(RemovalField, isRelativeFile),
)

func notEmpty(value string) bool {
	return value != ""
}

// isName rejects values that would break out of a "Name <mail>" identity.
func isName(value string) bool {
	return value != "" && !strings.ContainsFunc(value, func(r rune) bool {
		return r == '<' || r == '>' || unicode.IsControl(r)
	})
}

func isMail(value string) bool {
	return mailPattern.MatchString(value) && isName(value)
}

func isDirectory(value string) bool {
	return strings.HasPrefix(value, "./") && !hasReservedSegment(value)
}

func isRelativeFile(value string) bool {
	if value == "" || strings.HasPrefix(value, "/") || hasReservedSegment(value) {
		return false
	}

	return path.Clean(value) != "."
}

// hasReservedSegment reports a parent reference or a git metadata directory
// anywhere in value.
func hasReservedSegment(value string) bool {
	for _, segment := range strings.FieldsFunc(value, isSeparator) {
		if segment == ".." || isGitDir(segment) {
			return true
		}
	}

	return false
}

// isGitDir matches ".git" the way case-insensitive filesystems resolve it,
// including trailing dots and spaces.
func isGitDir(segment string) bool {
	return strings.EqualFold(strings.TrimRight(segment, ". "), ".git")
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}

// baseName strips any directory part a client sent with the filename, in
// either separator style.
func baseName(filename string) string {
	if i := strings.LastIndexFunc(filename, isSeparator); i >= 0 {
		filename = filename[i+1:]
	}

	if filename == "." || filename == ".." || isGitDir(filename) {
		return ""
	}

	return filename
}

// Classify validates form and builds the Command it describes. The presence of
// the removal field selects a removal; anything else is an upload. Every field
// is checked before failing, so the validation error lists all problems in
// field order. query supplies the debug flag.
func Classify(form Form, query map[string][]string) (Command, error) {
	kind := Upload
	rules := uploadRules
	if form.Has(RemovalField) {
		kind = Remove
		rules = removalRules
	}

	var absent, rejected []string
	for _, r := range rules {
		switch r.check(form) {
		case missing:
			absent = append(absent, r.field)
		case invalid:
			rejected = append(rejected, r.field)
		}
	}

	if len(absent) > 0 || len(rejected) > 0 {
		var detail []string
		if len(absent) > 0 {
			detail = append(detail, "Missing fields: "+strings.Join(absent, ","))
		}
		if len(rejected) > 0 {
			detail = append(detail, "Invalid fields: "+strings.Join(rejected, ","))
		}

		return Command{}, failure.NewValidation(IncompleteSummary, strings.Join(detail, "\n"))
	}

	command := Command{
		Kind:    kind,
		Author:  form.Values.Get(AuthorField),
		Email:   form.Values.Get(MailField),
		Comment: form.Values.Get(CommentField),
		Debug:   first(query[DebugParameter]) != "",
	}

	switch kind {
	case Remove:
		command.TargetPath = path.Clean(form.Values.Get(RemovalField))

	case Upload:
		file := form.Files[FileField]
		if len(file.Content) > MaxFileSize {
			return Command{}, tooLargeError()
		}

		command.TargetPath = path.Clean(path.Join(form.Values.Get(PathField), baseName(file.Filename)))
		command.Payload = file.Content
	}

	return command, nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}

	return values[0]
}
