// Package types holds the records produced by a package inventory run.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Fields dropped from every scanner item. Both are large and carry nothing
// about the package identity.
const (
	pypiDigestsField = "digests"
	pypiTimeField    = "time"
)

// RPMPackage is an installed RPM as reported by the RPM analyzer.
// Fields are declared in key order so the rendered JSON is sorted.
type RPMPackage struct {
	Name    string `json:"name"`
	PURL    string `json:"purl,omitempty"`
	Version string `json:"version"`
}

// PyPIPackage is a single item reported by the filesystem scanner. The
// scanner's fields are kept as decoded, minus the digests and time fields.
type PyPIPackage struct {
	fields map[string]any
}

// NewPyPIPackage builds a record from decoded scanner fields. The map is
// copied; the caller may reuse it.
func NewPyPIPackage(fields map[string]any) PyPIPackage {
	f := make(map[string]any, len(fields))
	maps.Copy(f, fields)
	delete(f, pypiDigestsField)
	delete(f, pypiTimeField)
	return PyPIPackage{fields: f}
}

func (p PyPIPackage) stringField(key string) string {
	s, _ := p.fields[key].(string)
	return s
}

// Name returns the package name, or "" when the scanner did not report one.
func (p PyPIPackage) Name() string { return p.stringField("name") }

// Version returns the package version, or "".
func (p PyPIPackage) Version() string { return p.stringField("version") }

// Path returns the location of the package metadata inside the image, or "".
func (p PyPIPackage) Path() string { return p.stringField("path") }

// Field returns a raw scanner field.
func (p PyPIPackage) Field(key string) (any, bool) {
	v, ok := p.fields[key]
	return v, ok
}

// Len returns the number of fields carried by the record.
func (p PyPIPackage) Len() int { return len(p.fields) }

// WithPURL returns a copy of the record carrying a package URL.
func (p PyPIPackage) WithPURL(purl string) PyPIPackage {
	f := make(map[string]any, len(p.fields)+1)
	maps.Copy(f, p.fields)
	f["purl"] = purl
	return PyPIPackage{fields: f}
}

// MarshalJSON renders the fields with sorted keys and without HTML escaping.
func (p PyPIPackage) MarshalJSON() ([]byte, error) {
	fields := p.fields
	if fields == nil {
		fields = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes a scanner item. Numbers are kept as json.Number so
// they render back exactly as the scanner wrote them.
func (p *PyPIPackage) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("scanner item is null")
	}
	*p = NewPyPIPackage(fields)
	return nil
}

// AnalysisResult is the document produced for one image.
// Fields are declared in key order so the rendered JSON is sorted.
type AnalysisResult struct {
	ImageName string        `json:"image_name"`
	PyPI      []PyPIPackage `json:"pypi"`
	RPM       []RPMPackage  `json:"rpm"`
}
