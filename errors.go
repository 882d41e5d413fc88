package kvtree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/reoring/kvtree/i18n"
)

// Issue codes.
const (
	CodeUnencodableScalar = "unencodable_scalar"
	CodeAmbiguousCategory = "ambiguous_category"
	CodeCyclicStructure   = "cyclic_structure"
	CodeDepthExceeded     = "depth_exceeded"
	CodeDuplicateKey      = "duplicate_key"
	CodeTypeMismatch      = "type_mismatch"
	CodeInvalidDescriptor = "invalid_descriptor"
)

// Issue describes why serialization stopped.
type Issue struct {
	Path    string // JSON Pointer into the output tree (for example: /key1/2).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: the offending Go type, descriptor text, etc.
	Cause   error  // Optional: underlying collaborator error.
}

// Issues is a collection of issues that implements error. The serializer is
// fail-fast, so it always returns exactly one; the slice form keeps room for
// collaborators that report several.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. unencodable_scalar at /key1/0 (complex128)
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		if it.Hint != "" {
			fmt.Fprintf(b, " (%s)", it.Hint)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the causes so errors.Is/As reach collaborator errors.
func (iss Issues) Unwrap() []error {
	var out []error
	for _, it := range iss {
		if it.Cause != nil {
			out = append(out, it.Cause)
		}
	}
	return out
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// HasCode reports whether err carries an issue with the given code.
func HasCode(err error, code string) bool {
	iss, ok := AsIssues(err)
	if !ok {
		return false
	}
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

func issueAt(path *pathRef, code, hint string, cause error) Issues {
	return Issues{Issue{
		Path:    path.Pointer(),
		Code:    code,
		Message: i18n.T(code, nil),
		Hint:    hint,
		Cause:   cause,
	}}
}

// pathRef builds JSON Pointer paths (RFC 6901) as the traversal descends.
// It is a persistent linked list so siblings share their prefix.
type pathRef struct {
	parent *pathRef
	part   string
}

func (p *pathRef) Field(name string) *pathRef {
	esc := strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
	return &pathRef{parent: p, part: esc}
}

func (p *pathRef) Index(i int) *pathRef {
	return &pathRef{parent: p, part: strconv.Itoa(i)}
}

func (p *pathRef) Pointer() string {
	if p == nil {
		return "/"
	}
	var parts []string
	for q := p; q != nil; q = q.parent {
		parts = append(parts, q.part)
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}
