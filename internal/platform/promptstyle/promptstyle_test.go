package promptstyle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplySystem(t *testing.T) {
	assert.Equal(t, "", ApplySystem("  ", "json"))

	out := ApplySystem("Write the section.\nMore detail.", "json")
	assert.True(t, strings.HasPrefix(out, marker))
	assert.Contains(t, out, "Task summary: Write the section.")
	assert.Contains(t, out, "single JSON object")
	assert.True(t, strings.HasSuffix(out, "Write the section.\nMore detail."))

	assert.Equal(t, out, ApplySystem(out, "json"))
	assert.NotContains(t, ApplySystem("Write.", "text"), "single JSON object")
}
