package server

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TemplateRenderer manages HTML templates with hot-reload support
type TemplateRenderer struct {
	templates   *template.Template
	mu          sync.RWMutex
	devMode     bool
	templateDir string
}

// NewTemplateRenderer creates a new template renderer
func NewTemplateRenderer(devMode bool, templateDir string) (*TemplateRenderer, error) {
	if templateDir == "" {
		templateDir = "web/templates"
	}

	tr := &TemplateRenderer{
		devMode:     devMode,
		templateDir: templateDir,
	}

	if err := tr.loadTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return tr, nil
}

// loadTemplates parses all HTML templates from the template directory
func (tr *TemplateRenderer) loadTemplates() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	funcMap := template.FuncMap{
		"truncate": truncateString,
		"add":      func(a, b int) int { return a + b },
	}

	tmpl := template.New("").Funcs(funcMap)

	err := filepath.WalkDir(tr.templateDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}

		// Template name is relative path from template directory
		name := strings.TrimPrefix(path, tr.templateDir+"/")

		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	tr.templates = tmpl
	return nil
}

// Render executes a template with the given data
func (tr *TemplateRenderer) Render(w io.Writer, name string, data interface{}) error {
	// In dev mode, reload templates on each request
	if tr.devMode {
		if err := tr.loadTemplates(); err != nil {
			return fmt.Errorf("failed to reload templates: %w", err)
		}
	}

	tr.mu.RLock()
	defer tr.mu.RUnlock()

	if tr.templates == nil {
		return fmt.Errorf("templates not loaded")
	}

	if err := tr.templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return nil
}

// truncateString truncates a string to the specified length and adds "..."
func truncateString(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length] + "..."
}
