package roster

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/pvplan/pvplan/internal/domain"
)

// Format is a roster file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrRosterFormat, path)
}

// Load reads a roster file. Members without ids get fresh ones.
func Load(path string) (domain.PlanInput, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return domain.PlanInput{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.PlanInput{}, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return Decode(f, format)
}

// Decode reads a roster in the given format.
func Decode(r io.Reader, format Format) (domain.PlanInput, error) {
	var in domain.PlanInput
	switch format {
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&in); err != nil {
			return in, fmt.Errorf("decode toml roster: %w", err)
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&in); err != nil {
			return in, fmt.Errorf("decode json roster: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&in); err != nil && err != io.EOF {
			return in, fmt.Errorf("decode yaml roster: %w", err)
		}
	default:
		return in, fmt.Errorf("%w: %q", domain.ErrRosterFormat, format)
	}
	in.Downline = EnsureIDs(in.Downline)
	return in, nil
}

// Save writes a roster file, choosing the format from the extension.
func Save(path string, in domain.PlanInput) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create roster: %w", err)
	}
	if err := Encode(f, format, in); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes a roster in the given format.
func Encode(w io.Writer, format Format, in domain.PlanInput) error {
	switch format {
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(in); err != nil {
			return fmt.Errorf("encode toml roster: %w", err)
		}
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(in); err != nil {
			return fmt.Errorf("encode json roster: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(in); err != nil {
			return fmt.Errorf("encode yaml roster: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml roster: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", domain.ErrRosterFormat, format)
	}
	return nil
}
