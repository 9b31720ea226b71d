package configdoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const logPrefix = "configdoc:loader"

// Format is the serialization of a configuration document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension. Unknown
// extensions are read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Parse decodes data into a Document. JSON input may carry // and /* */
// comments and trailing commas.
func Parse(data []byte, format Format, source string) (*Document, error) {
	var tree map[string]any
	switch format {
	case FormatJSON, "":
		if err := json.Unmarshal(jsonc.ToJSON(data), &tree); err != nil {
			return nil, fmt.Errorf("%s - parse %s as JSON: %w", logPrefix, source, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("%s - parse %s as YAML: %w", logPrefix, source, err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("%s - parse %s as TOML: %w", logPrefix, source, err)
		}
	default:
		return nil, fmt.Errorf("%s - unsupported document format %q", logPrefix, format)
	}
	if tree == nil {
		return nil, fmt.Errorf("%s - %s: document root must be an object", logPrefix, source)
	}
	return &Document{root: tree, source: source}, nil
}

// Load reads the document at path. An empty path or a file that does not
// exist means no document was supplied and returns (nil, nil); a file that
// exists but cannot be read or parsed is an error.
func Load(path string) (*Document, error) {
	if path == "" {
		slog.Info(fmt.Sprintf("%s - No configuration document configured", logPrefix))
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn(fmt.Sprintf("%s - Configuration document %s does not exist, treating as absent", logPrefix, path))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read %s: %w", logPrefix, path, err)
	}

	doc, err := Parse(data, FormatFromPath(path), path)
	if err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("%s - Loaded configuration document from %s", logPrefix, path))
	return doc, nil
}
