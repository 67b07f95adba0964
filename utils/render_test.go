package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate_SubstitutesName(t *testing.T) {
	out := RenderTemplate("Hi {{ name }}, your table is ready", map[string]string{"name": "Ada"})
	assert.Equal(t, "Hi Ada, your table is ready", out)
}

func TestRenderTemplate_CaseAndWhitespaceInsensitive(t *testing.T) {
	vars := map[string]string{"NAME": "Ada"}

	assert.Equal(t, "Ada", RenderTemplate("{{name}}", vars))
	assert.Equal(t, "Ada", RenderTemplate("{{ Name }}", vars))
	assert.Equal(t, "Ada", RenderTemplate("{{  NAME  }}", vars))
}

func TestRenderTemplate_AbsentVariableRendersEmpty(t *testing.T) {
	out := RenderTemplate("Hi {{ name }}, see you {{ day }}!", map[string]string{"day": "Friday"})
	assert.Equal(t, "Hi , see you Friday!", out)

	out = RenderTemplate("Hi {{ name }}", nil)
	assert.Equal(t, "Hi ", out)
	assert.NotContains(t, out, "{{")
	assert.NotContains(t, out, "}}")
}

func TestRenderTemplate_NoPlaceholders(t *testing.T) {
	assert.Equal(t, "plain text", RenderTemplate("plain text", map[string]string{"name": "Ada"}))
	assert.Equal(t, "", RenderTemplate("", nil))
}
