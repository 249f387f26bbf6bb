// Package file gates uploaded proof documents. Two independent gates must
// both pass: a structural gate over name, size, and declared type, and a
// content gate over the decoded bytes of textual documents. Neither gate
// repairs anything; failure is terminal for that file.
package file

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxFileSize is the structural ceiling for proof documents: 5 MiB.
const MaxFileSize = 5 << 20

const (
	maxJSONDepth       = 10
	maxJSONArrayLength = 1000
)

// Meta describes an uploaded file as reported by the hosting environment.
type Meta struct {
	Name     string
	Size     int64
	MIMEType string
}

// Result is the structural gate verdict.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Scan is the content gate verdict.
type Scan struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

var allowedMIMETypes = map[string]bool{
	"application/pdf":    true,
	"image/png":          true,
	"image/jpeg":         true,
	"image/gif":          true,
	"image/webp":         true,
	"text/plain":         true,
	"application/json":   true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".txt":  true,
	".json": true,
	".doc":  true,
	".docx": true,
}

var executableExtensions = map[string]bool{
	".exe": true,
	".bat": true,
	".cmd": true,
	".scr": true,
	".pif": true,
	".com": true,
}

// injectionSignatures are scanned against decoded text content. Matching any
// of them rejects the file outright.
var injectionSignatures = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)\son\w+\s*=`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)document\.cookie`),
	regexp.MustCompile(`(?i)(document|window)\.location`),
}

// Validator applies both gates. Stateless and safe for concurrent use.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateFile is the structural gate: size ceiling, MIME and extension
// allow-lists, and filename hygiene. It inspects metadata only, never content.
func (v *Validator) ValidateFile(meta Meta) Result {
	if meta.Size > MaxFileSize {
		return Result{Reason: fmt.Sprintf("file exceeds the %d MiB size limit", MaxFileSize>>20)}
	}
	if !allowedMIMETypes[strings.ToLower(meta.MIMEType)] {
		return Result{Reason: fmt.Sprintf("file type %q is not allowed", meta.MIMEType)}
	}
	if reason := suspiciousName(meta.Name); reason != "" {
		return Result{Reason: reason}
	}
	if !allowedExtensions[extensionOf(meta.Name)] {
		return Result{Reason: fmt.Sprintf("file extension of %q is not allowed", meta.Name)}
	}
	return Result{Valid: true}
}

// suspiciousName rejects filenames carrying traversal sequences, null bytes,
// OS-reserved characters, or executable extensions.
func suspiciousName(name string) string {
	if name == "" {
		return "file name is empty"
	}
	if strings.ContainsRune(name, 0) {
		return "file name contains a null byte"
	}
	if strings.Contains(name, "../") || strings.Contains(name, `..\`) {
		return "file name contains a path traversal sequence"
	}
	if strings.ContainsAny(name, `<>:"|?*`) {
		return "file name contains reserved characters"
	}
	if executableExtensions[extensionOf(name)] {
		return "executable files are not allowed"
	}
	return ""
}

// extensionOf returns the lowercase extension. A legitimate dot-file whose
// sole content is an allowed extension (a bare ".txt") reports that extension.
func extensionOf(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// ScanContent is the content gate, applied only to textual MIME types; binary
// formats pass through untouched. Text is scanned for injection signatures;
// JSON additionally has its nesting depth and array sizes bounded so an
// adversarial payload cannot blow up later parsing.
func (v *Validator) ScanContent(meta Meta, content []byte) Scan {
	mime := strings.ToLower(meta.MIMEType)
	if mime != "text/plain" && mime != "application/json" {
		return Scan{Safe: true}
	}

	text := string(content)
	for _, sig := range injectionSignatures {
		if sig.MatchString(text) {
			return Scan{Reason: "file content contains a suspicious pattern"}
		}
	}

	if mime == "application/json" {
		if reason := checkJSONBounds(content); reason != "" {
			return Scan{Reason: reason}
		}
	}
	return Scan{Safe: true}
}

// checkJSONBounds walks the token stream without materializing the document,
// enforcing the depth and array-size ceilings.
func checkJSONBounds(content []byte) string {
	dec := json.NewDecoder(strings.NewReader(string(content)))

	type frame struct {
		isArray  bool
		elements int
	}
	var stack []frame

	countElement := func() string {
		if len(stack) == 0 {
			return ""
		}
		top := &stack[len(stack)-1]
		if !top.isArray {
			return ""
		}
		top.elements++
		if top.elements > maxJSONArrayLength {
			return fmt.Sprintf("JSON array exceeds %d elements", maxJSONArrayLength)
		}
		return ""
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ""
		}
		if err != nil {
			return "file content is not valid JSON"
		}

		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				if reason := countElement(); reason != "" {
					return reason
				}
				stack = append(stack, frame{isArray: t == '['})
				if len(stack) > maxJSONDepth {
					return fmt.Sprintf("JSON nesting exceeds %d levels", maxJSONDepth)
				}
			case '}', ']':
				stack = stack[:len(stack)-1]
			}
		default:
			// Scalar values only count toward array sizes; object keys and
			// values arrive as alternating string tokens and are not counted
			// unless the enclosing container is an array.
			if reason := countElement(); reason != "" {
				return reason
			}
		}
	}
}
