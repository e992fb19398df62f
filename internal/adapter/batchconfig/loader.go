// Package batchconfig reads and writes batch configuration files.
//
// Files are JSON, or YAML when the extension is .yaml/.yml. Full-line // and #
// comments are allowed in both and removed before parsing.
package batchconfig

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"gitlab.com/dutbench.net/internal/domain"
	"gitlab.com/dutbench.net/internal/static/errs"
)

// Format is the on-disk encoding of a batch file
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DefaultPath is used when no config path is given on the command line
const DefaultPath = "batch_config.json"

// Document is a batch file opened for rewriting by the normalization tools.
// Saving writes back the file as read with only the runs' dut_commands replaced.
type Document struct {
	Path   string
	Format Format
	Config *domain.BatchConfig

	jsonTree *object
	yamlTree *yaml.Node
}

type fileConfig struct {
	CommonSettings domain.CommonSettings `json:"common_settings" yaml:"common_settings"`
	Runs           *[]domain.RunSpec     `json:"runs" yaml:"runs"`
}

// FormatFor picks the encoding from the file extension
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads, parses and validates a batch file
func Load(path string) (*domain.BatchConfig, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(doc.Config); err != nil {
		return nil, err
	}

	if doc.Config.CommonSettings.DutServerPort == 0 {
		doc.Config.CommonSettings.DutServerPort = domain.DefaultDutServerPort
	}

	return doc.Config, nil
}

// LoadDocument reads and parses a batch file without validating run names
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", errs.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	format := FormatFor(path)
	cfg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	doc := &Document{Path: path, Format: format, Config: cfg}
	if format == FormatYAML {
		doc.yamlTree, err = parseYAMLTree(data)
	} else {
		doc.jsonTree, err = decodeObject(StripComments(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, errs.ErrInvalidConfig, err)
	}

	return doc, nil
}

// Parse decodes batch file content. A missing runs key yields errs.ErrNoRuns.
func Parse(data []byte, format Format) (*domain.BatchConfig, error) {
	clean := StripComments(data)

	var raw fileConfig
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(clean, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrInvalidConfig, err)
		}
	default:
		if err := json.Unmarshal(clean, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrInvalidConfig, err)
		}
	}

	if raw.Runs == nil {
		return nil, errs.ErrNoRuns
	}

	return &domain.BatchConfig{
		CommonSettings: raw.CommonSettings,
		Runs:           *raw.Runs,
	}, nil
}

// Validate checks that every run has a unique, non-empty name
func Validate(cfg *domain.BatchConfig) error {
	seen := make(map[string]int, len(cfg.Runs))
	for i, run := range cfg.Runs {
		if strings.TrimSpace(run.Name) == "" {
			return fmt.Errorf("%w: run #%d has no name", errs.ErrInvalidConfig, i+1)
		}
		if first, dup := seen[run.Name]; dup {
			return fmt.Errorf("%w: run name %q used by runs #%d and #%d", errs.ErrInvalidConfig, run.Name, first+1, i+1)
		}
		seen[run.Name] = i
	}
	return nil
}

// StripComments drops lines whose first non-blank characters are // or #.
// Comment markers inside values are left alone.
func StripComments(data []byte) []byte {
	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.Bytes()
}

// SaveDocument writes the document back in its own format. Everything except
// the runs' dut_commands is written as it was read. JSON is indented with four
// spaces; full-line comments in JSON files are not kept.
func SaveDocument(doc *Document) error {
	var (
		data []byte
		err  error
	)
	switch {
	case doc.yamlTree != nil:
		data, err = encodeYAMLTree(doc.yamlTree, doc.Config.Runs)
	case doc.jsonTree != nil:
		data, err = encodeJSONTree(doc.jsonTree, doc.Config.Runs)
	default:
		err = errors.New("document was not loaded from a file")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config %s: %w", doc.Path, err)
	}

	if err := os.WriteFile(doc.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", doc.Path, err)
	}
	return nil
}
