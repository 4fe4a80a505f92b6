// Package fixtures renders source text from a fixtures manifest, such as a Rust module of account
// address constants for the program tests.
package fixtures

import (
	"bytes"
	_ "embed"
	"os"
	"strings"
	"text/template"
	"unicode"

	"github.com/malbeclabs/wlfixtures/internal/registry"
)

//go:embed templates/rust.tmpl
var rustTemplate string

// ConstName turns a registry key into an upper snake case identifier, e.g. "ticket_account_2022"
// becomes "TICKET_ACCOUNT_2022".
func ConstName(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if i == 0 && unicode.IsDigit(r) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var templateFuncs = template.FuncMap{
	"constName": ConstName,
	"join":      strings.Join,
}

// RenderTemplate renders a template string with the given data
func RenderTemplate(templateContent string, data any) (string, error) {
	var buf bytes.Buffer
	tmpl := template.New("").Funcs(templateFuncs).Option("missingkey=error")
	tmpl, err := tmpl.Parse(templateContent)
	if err != nil {
		return "", err
	}
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderFile reads a file and renders it as a template with the given data
func RenderFile(filepath string, data any) (string, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return "", err
	}
	return RenderTemplate(string(content), data)
}

// RenderRust renders the built-in Rust module for m.
func RenderRust(m *registry.Manifest) (string, error) {
	return RenderTemplate(rustTemplate, m)
}
