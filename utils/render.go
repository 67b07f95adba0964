package utils

import (
	"regexp"
	"strings"
)

// placeholderPattern matches {{ name }} style placeholders, whitespace and
// case insensitive.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// RenderTemplate substitutes known placeholders into a title or body string.
// Unknown or absent variables render as the empty string; literal placeholder
// markup never survives into an outbound payload. Never returns an error: a
// broken template is still a deliverable notification.
func RenderTemplate(template string, vars map[string]string) string {
	if template == "" || !strings.Contains(template, "{{") {
		return template
	}

	lowered := make(map[string]string, len(vars))
	for k, v := range vars {
		lowered[strings.ToLower(k)] = v
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		return lowered[strings.ToLower(key)]
	})
}
