// Package codec provides format-aware parse/serialize between raw bytes
// and jin's internal/value.Value model, dispatched by filename extension.
package codec

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jinconfig/jin/internal/value"
)

// Format names a concrete file format jin understands structurally.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatINI  Format = "ini"
	FormatText Format = "text" // opaque, not structurally merged
)

// Codec parses and serializes a single structured format.
type Codec interface {
	Parse(data []byte) (value.Value, error)
	Serialize(v value.Value) ([]byte, error)
}

// DetectFormat maps a filename's extension to a Format, per spec.md §4.C:
// .json, .yaml/.yml, .toml, .ini/.cfg/.conf; anything else is FormatText.
func DetectFormat(path string) Format {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".ini", ".cfg", ".conf":
		return FormatINI
	default:
		return FormatText
	}
}

// ForFormat returns the Codec implementation for a structured format.
// Calling it with FormatText is a programmer error: text files never go
// through a Codec, they're merged as raw bytes by internal/merge.
func ForFormat(f Format) (Codec, error) {
	switch f {
	case FormatJSON:
		return JSONCodec{}, nil
	case FormatYAML:
		return YAMLCodec{}, nil
	case FormatTOML:
		return TOMLCodec{}, nil
	case FormatINI:
		return INICodec{}, nil
	default:
		return nil, fmt.Errorf("no structured codec for format %q", f)
	}
}

// ParsePath is a convenience: detect format from path, then parse if
// structured. The merge kernel's FoldLayers calls DetectFormat and
// ForFormat itself rather than this helper.
func ParsePath(path string, data []byte) (value.Value, Format, error) {
	f := DetectFormat(path)
	if f == FormatText {
		return value.String(string(data)), f, nil
	}
	c, err := ForFormat(f)
	if err != nil {
		return value.Value{}, f, err
	}
	v, err := c.Parse(data)
	return v, f, err
}
