package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/ar-placement/errors"
)

// Format is a catalog file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.InvalidInput(errors.PhaseCatalog, fmt.Sprintf("unsupported catalog extension %q", filepath.Ext(path)))
	}
}

type document struct {
	AssetRoot string   `toml:"asset_root" yaml:"asset_root" json:"asset_root"`
	Objects   []Policy `toml:"object" yaml:"objects" json:"objects"`
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCatalog, errors.KindInvalidInput, err, "read catalog")
	}
	return Parse(data, format)
}

// Parse decodes a catalog document.
func Parse(data []byte, format Format) (*Catalog, error) {
	var doc document
	var err error
	switch format {
	case FormatTOML:
		_, err = toml.Decode(string(data), &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	default:
		return nil, errors.InvalidInput(errors.PhaseCatalog, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCatalog, errors.KindInvalidInput, err, "parse "+string(format)+" catalog")
	}
	return New(doc.AssetRoot, doc.Objects...)
}
