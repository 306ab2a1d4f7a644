package util

import (
	"fmt"
	"strings"
	"text/template"
)

// RenderTemplate renders templateStr using Go template syntax with the
// provided state values. Session values are referenced as {{.key}} and a
// small set of helper functions is available for prompt construction.
func RenderTemplate(templateStr string, state map[string]any) (string, error) {
	tmpl, err := template.New("prompt").Funcs(template.FuncMap{
		"default": func(def, val any) any {
			if val == nil {
				return def
			}

			if s, ok := val.(string); ok && s == "" {
				return def
			}

			return val
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
		"truncate": func(n int, s string) string {
			if len(s) <= n {
				return s
			}

			return s[:n] + "..."
		},
	}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, state); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return sb.String(), nil
}
