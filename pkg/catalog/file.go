package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a catalog document. JSON documents are
// accepted too since YAML is a superset of JSON.
type File struct {
	FallbackReplies any              `yaml:"fallback_replies"`
	Actions         []map[string]any `yaml:"actions"`
}

// Catalog is a decoded catalog document.
type Catalog struct {
	FallbackReplies any
	Definitions     []Definition
}

// LoadFile reads and decodes a catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes catalog bytes.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Join(domain.ErrConfiguration, err)
	}
	c := &Catalog{
		FallbackReplies: ReplyValue(f.FallbackReplies),
		Definitions:     make([]Definition, 0, len(f.Actions)),
	}
	for i, raw := range f.Actions {
		d, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("action #%d: %w", i, err)
		}
		c.Definitions = append(c.Definitions, d)
	}
	return c, nil
}

// Decode converts a generic map (YAML, JSON or frontmatter) into a
// Definition. Unknown keys and wrongly shaped fields are configuration errors.
func Decode(raw map[string]any) (Definition, error) {
	var d Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &d,
		TagName:     "mapstructure",
		ErrorUnused: true,
	})
	if err != nil {
		return d, err
	}
	if err := decoder.Decode(raw); err != nil {
		name, _ := raw["name"].(string)
		return d, &domain.ConfigurationError{Action: name, Reason: err.Error()}
	}
	return d, nil
}

// FileSource serves the actions of a catalog file. The file is read
// again on every call.
type FileSource struct {
	Path    string
	Options []CompileOption
}

// NewFileSource creates a source for the catalog file at path.
func NewFileSource(path string, opts ...CompileOption) *FileSource {
	return &FileSource{Path: path, Options: opts}
}

// Actions loads and compiles the catalog.
func (s *FileSource) Actions(ctx context.Context) ([]*domain.Action, error) {
	c, err := LoadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return CompileAll(c.Definitions, s.Options...)
}

// FallbackReplies returns the fallback replies declared by the catalog.
func (s *FileSource) FallbackReplies() (any, error) {
	c, err := LoadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return c.FallbackReplies, nil
}
