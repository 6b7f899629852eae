package mailer

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"log/slog"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"
)

const (
	textSuffix = ".txt"
	htmlSuffix = ".html"
)

// Templates renders the text and HTML variants of a mail template from a
// filesystem. Template names are slash separated prefixes such as
// "account/welcome".
type Templates struct {
	fsys fs.FS
}

// NewTemplates creates Templates reading from fsys.
func NewTemplates(fsys fs.FS) *Templates {
	return &Templates{fsys: fsys}
}

// Render renders <prefix>.txt and <prefix>.html with data. A variant that
// does not exist renders as an empty string.
func (t *Templates) Render(prefix string, data map[string]any) (string, string, error) {
	text, err := t.renderText(prefix+textSuffix, data)
	if err != nil {
		return "", "", err
	}

	html, err := t.renderHTML(prefix+htmlSuffix, data)
	if err != nil {
		return "", "", err
	}

	return text, html, nil
}

func (t *Templates) renderText(name string, data map[string]any) (string, error) {
	raw, ok, err := t.read(name)
	if err != nil || !ok {
		return "", err
	}

	tmpl, err := texttemplate.New(name).Funcs(sprig.TxtFuncMap()).Parse(raw)
	if err != nil {
		slog.Error("Failed to parse mail template", "template", name, "error", err)
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		slog.Error("Failed to render mail template", "template", name, "error", err)
		return "", fmt.Errorf("render template %s: %w", name, err)
	}

	return buf.String(), nil
}

func (t *Templates) renderHTML(name string, data map[string]any) (string, error) {
	raw, ok, err := t.read(name)
	if err != nil || !ok {
		return "", err
	}

	tmpl, err := htmltemplate.New(name).Funcs(sprig.HtmlFuncMap()).Parse(raw)
	if err != nil {
		slog.Error("Failed to parse mail template", "template", name, "error", err)
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		slog.Error("Failed to render mail template", "template", name, "error", err)
		return "", fmt.Errorf("render template %s: %w", name, err)
	}

	return buf.String(), nil
}

func (t *Templates) read(name string) (string, bool, error) {
	raw, err := fs.ReadFile(t.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("Mail template variant not found", "template", name)
		return "", false, nil
	}

	if err != nil {
		slog.Error("Failed to read mail template", "template", name, "error", err)
		return "", false, fmt.Errorf("read template %s: %w", name, err)
	}

	return string(raw), true, nil
}
