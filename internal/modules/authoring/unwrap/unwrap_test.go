package unwrap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtures = map[string]string{
	"plain":             "Cardiac output = stroke volume x heart rate.",
	"plain multiline":   "Line one\nLine two\n\n- bullet",
	"literal escapes":   `First\nSecond\tTabbed`,
	"fenced json":       "```json\n{\"full_text\": \"Line1\\nLine2\"}\n```",
	"fenced no tag":     "```\n{\"high_yield\": \"- A\\n- B\"}\n```",
	"object":            `{"deep_dive": "Mechanism\n\nDetails", "confidence": "high"}`,
	"double escaped":    `{"full_text": "Para one\\n\\nPara two"}`,
	"doubly encoded":    `"{\"full_text\": \"A\\nB\"}"`,
	"escaped object":    `{\"full_text\": \"Escaped \\\"quoted\\\" text\"}`,
	"prose around json": "Sure! Here is the section:\n{\"full_text\": \"Body text\"}\nLet me know.",
	"truncated":         `{"full_text": "Heart failure is a clinical syndrome where the heart cannot`,
	"truncated escaped": `{"high_yield": "- Preload \"rises\"\n- Afterload`,
	"literal fence":     "```json\\n{\\\"high_yield\\\": \\\"- A\\\\n- B\\\"}\\n```",
	"markdown blocks":   "Intro\n```js\nconst a = 1\n```\nOutro\n```py\nx = 1\n```",
	"whitespace":        "   \n\t ",
	"empty value":       `{"full_text": ""}`,
	"non string value":  `{"full_text": 12, "high_yield": "fallback"}`,
}

func TestUnwrapScenarios(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "fenced json with escaped newline", in: fixtures["fenced json"], want: "Line1\nLine2"},
		{name: "fenced json without tag", in: fixtures["fenced no tag"], want: "- A\n- B"},
		{name: "plain text passthrough", in: fixtures["plain"], want: fixtures["plain"]},
		{name: "literal escapes unescaped", in: fixtures["literal escapes"], want: "First\nSecond\tTabbed"},
		{name: "object key priority", in: fixtures["object"], want: "Mechanism\n\nDetails"},
		{name: "double escaped newlines", in: fixtures["double escaped"], want: "Para one\n\nPara two"},
		{name: "doubly encoded string literal", in: fixtures["doubly encoded"], want: "A\nB"},
		{name: "escaped object", in: fixtures["escaped object"], want: `Escaped "quoted" text`},
		{name: "prose around json", in: fixtures["prose around json"], want: "Body text"},
		{name: "truncated json", in: fixtures["truncated"], want: "Heart failure is a clinical syndrome where the heart cannot"},
		{name: "truncated with escaped quotes", in: fixtures["truncated escaped"], want: "- Preload \"rises\"\n- Afterload"},
		{name: "literal fence and escapes", in: fixtures["literal fence"], want: "- A\n- B"},
		{name: "markdown with several fences kept", in: fixtures["markdown blocks"], want: fixtures["markdown blocks"]},
		{name: "whitespace only", in: fixtures["whitespace"], want: ""},
		{name: "empty", in: "", want: ""},
		{name: "non string value skipped", in: fixtures["non string value"], want: "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unwrap(tt.in))
		})
	}
}

func TestUnwrapIdempotent(t *testing.T) {
	for name, in := range fixtures {
		t.Run(name, func(t *testing.T) {
			once := Unwrap(in)
			assert.Equal(t, once, Unwrap(once))
		})
	}
}

func TestUnwrapNeverEmptyForNonEmptyInput(t *testing.T) {
	for name, in := range fixtures {
		if name == "whitespace" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			assert.NotEmpty(t, Unwrap(in))
		})
	}
	for _, in := range []string{`\n`, "```\n```", `\n\n`, "```json\n```", `\t`} {
		t.Run(in, func(t *testing.T) {
			got := UnwrapDetailed(in)
			assert.NotEmpty(t, got.Text)
			assert.Equal(t, strings.TrimSpace(in), got.Text)
			assert.Equal(t, StrategyPlain, got.Strategy)
			assert.Equal(t, got.Text, Unwrap(got.Text))
		})
	}
}

func TestUnwrapDetailedStrategies(t *testing.T) {
	tests := []struct {
		in       string
		strategy Strategy
		degraded bool
	}{
		{in: fixtures["plain"], strategy: StrategyPlain},
		{in: fixtures["fenced json"], strategy: StrategyJSON},
		{in: fixtures["prose around json"], strategy: StrategyBraceSlice},
		{in: fixtures["doubly encoded"], strategy: StrategyEscapedJSON},
		{in: fixtures["truncated"], strategy: StrategyKeyScan, degraded: true},
		{in: "", strategy: StrategyEmpty},
	}
	for _, tt := range tests {
		out := UnwrapDetailed(tt.in)
		assert.Equal(t, tt.strategy, out.Strategy, "input %q", tt.in)
		assert.Equal(t, tt.degraded, out.Degraded, "input %q", tt.in)
	}
}

func TestUnwrapKeysPriority(t *testing.T) {
	in := `{"full_text": "long body", "answer": "B is correct"}`
	assert.Equal(t, "B is correct", UnwrapKeys(in, []string{"answer"}).Text)
	assert.Equal(t, "long body", Unwrap(in))
}

func TestParseObject(t *testing.T) {
	obj, ok := ParseObject(fixtures["literal fence"])
	require.True(t, ok)
	assert.Equal(t, "- A\n- B", obj["high_yield"])

	obj, ok = ParseObject(fixtures["prose around json"])
	require.True(t, ok)
	assert.Equal(t, "Body text", obj["full_text"])

	_, ok = ParseObject(fixtures["plain"])
	assert.False(t, ok)
}

func TestParseValueArray(t *testing.T) {
	v, ok := ParseValue("```json\n[\"a\", \"b\"]\n```")
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, v)
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "hello world```", StripFence("hello world```"))
	assert.Equal(t, "inline code", StripFence("```inline code```"))
	assert.Equal(t, "truncated", StripFence("```markdown\ntruncated"))
}
