package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"text/template"

	"github.com/dyluth/kanban/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// Options fill in the generated kanban.yml. Zero values take the
// configuration defaults.
type Options struct {
	Instance  string
	BoardName string
	Mode      string
	RedisURL  string
	APIURL    string
	Columns   []string
}

// Initialize writes a kanban.yml at path. Unless force is set, an existing
// file is left alone and reported by CheckExisting's error.
func Initialize(path string, opts Options, force bool) error {
	if !force {
		if err := CheckExisting(path); err != nil {
			return err
		}
	}

	content, err := Render(opts)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	// Validate created file
	if _, err := config.Load(path); err != nil {
		return fmt.Errorf("created %s is invalid: %w", path, err)
	}
	return nil
}

// Render produces kanban.yml content for opts.
func Render(opts Options) ([]byte, error) {
	defaults := config.Default()
	if opts.Instance == "" {
		opts.Instance = defaults.Instance
	}
	if opts.BoardName == "" {
		opts.BoardName = defaults.BoardName
	}
	if opts.Mode == "" {
		opts.Mode = defaults.Backend.Mode
	}
	if opts.RedisURL == "" {
		opts.RedisURL = defaults.Backend.RedisURL
	}
	if opts.APIURL == "" {
		opts.APIURL = defaults.Backend.APIURL
	}
	if len(opts.Columns) == 0 {
		opts.Columns = defaults.DefaultColumns
	}

	raw, err := templatesFS.ReadFile("templates/kanban.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read kanban.yml template: %w", err)
	}
	tmpl, err := template.New("kanban.yml").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse kanban.yml template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, opts); err != nil {
		return nil, fmt.Errorf("failed to render kanban.yml: %w", err)
	}
	return buf.Bytes(), nil
}

// CheckExisting returns an error if path already exists.
func CheckExisting(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	return nil
}
