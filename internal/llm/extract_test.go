package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON_Object(t *testing.T) {
	got := ExtractJSON("here you go: {\"steps\": [{\"intent\": \"open_url\"}]} thanks")
	assert.Equal(t, `{"steps": [{"intent": "open_url"}]}`, got)
}

func TestExtractJSON_Array(t *testing.T) {
	got := ExtractJSON("```json\n[{\"intent\": \"open_url\", \"url\": \"x\"}]\n```")
	assert.Equal(t, `[{"intent": "open_url", "url": "x"}]`, got)
}

func TestExtractJSON_NoJSON(t *testing.T) {
	assert.Equal(t, "", ExtractJSON("no json here at all"))
}

func TestExtractJSON_StringWithBraces(t *testing.T) {
	got := ExtractJSON(`{"text": "use {curly} braces"}`)
	assert.Equal(t, `{"text": "use {curly} braces"}`, got)
}

func TestExtractJSON_PicksEarliest(t *testing.T) {
	got := ExtractJSON(`prefix [1,2,3] then {"a":1}`)
	assert.Equal(t, "[1,2,3]", got)
}
