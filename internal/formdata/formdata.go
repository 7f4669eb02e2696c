// Package formdata builds multipart/form-data bodies byte for byte the way
// the cohost upload endpoint expects them. Unlike mime/multipart it escapes
// double quotes inside field values as well as in the filename.
package formdata

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const boundaryPrefix = "cohostpostFormBoundary"

// ErrBoundaryCollision is returned when file content contains the boundary delimiter.
var ErrBoundaryCollision = errors.New("formdata: file content contains boundary")

// Field is a single name/value form field.
type Field struct {
	Name  string
	Value string
}

// Fields is an ordered field list. It decodes from a JSON object and keeps
// the object's key order. An empty object decodes to a non-nil empty list
// so callers can tell it apart from an absent or null value.
type Fields []Field

// UnmarshalJSON decodes a JSON object into ordered fields. Non-string values
// are kept as their raw JSON text.
func (f *Fields) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("formdata: fields must be a JSON object")
	}

	out := Fields{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			value = string(raw)
		}
		out = append(out, Field{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*f = out
	return nil
}

// Builder accumulates a multipart body in memory.
type Builder struct {
	boundary string
	buf      bytes.Buffer
	closed   bool
}

// NewBuilder returns a builder with a random boundary.
func NewBuilder() (*Builder, error) {
	token := make([]byte, 8)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("formdata: generate boundary: %w", err)
	}
	return NewBuilderWithBoundary(boundaryPrefix + hex.EncodeToString(token)), nil
}

// NewBuilderWithBoundary returns a builder using a fixed boundary.
func NewBuilderWithBoundary(boundary string) *Builder {
	return &Builder{boundary: boundary}
}

// Boundary returns the boundary token.
func (b *Builder) Boundary() string { return b.boundary }

// ContentType returns the header value for the request.
func (b *Builder) ContentType() string {
	return "multipart/form-data; boundary=" + b.boundary
}

// WriteField appends a plain field part.
func (b *Builder) WriteField(name, value string) {
	fmt.Fprintf(&b.buf, "--%s\r\nContent-Disposition: form-data; name=\"%s\"\r\n\r\n%s\r\n",
		b.boundary, name, escapeQuotes(value))
}

// WriteFields appends every field in order.
func (b *Builder) WriteFields(fields Fields) {
	for _, f := range fields {
		b.WriteField(f.Name, f.Value)
	}
}

// WriteFile appends a file part holding data.
func (b *Builder) WriteFile(fieldName, filename, contentType string, data []byte) error {
	if bytes.Contains(data, []byte("--"+b.boundary)) {
		return ErrBoundaryCollision
	}
	fmt.Fprintf(&b.buf, "--%s\r\nContent-Disposition: form-data; name=\"%s\"; filename=\"%s\"\r\nContent-Type: %s\r\n\r\n",
		b.boundary, fieldName, escapeQuotes(filename), contentType)
	b.buf.Write(data)
	b.buf.WriteString("\r\n")
	return nil
}

// Bytes closes the body, if not already closed, and returns it.
func (b *Builder) Bytes() []byte {
	if !b.closed {
		fmt.Fprintf(&b.buf, "--%s--\r\n", b.boundary)
		b.closed = true
	}
	return b.buf.Bytes()
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
