package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:     "emphasis",
			input:    "**bold** and *italic*",
			contains: []string{"<strong>bold</strong>", "<em>italic</em>"},
		},
		{
			name:     "lists",
			input:    "- eggs\n- milk",
			contains: []string{"<ul>", "<li>eggs</li>", "<li>milk</li>"},
		},
		{
			name:        "script stripped",
			input:       "hello <script>alert(1)</script>",
			contains:    []string{"hello"},
			notContains: []string{"<script", "alert(1)"},
		},
		{
			name:        "disallowed tags stripped but text kept",
			input:       "<div>inside</div>",
			contains:    []string{"inside"},
			notContains: []string{"<div"},
		},
		{
			name:        "images stripped",
			input:       "![pic](https://example.com/a.png)",
			notContains: []string{"<img"},
		},
		{
			name:     "bare urls linkified",
			input:    "see https://example.com for more",
			contains: []string{`href="https://example.com"`, "nofollow"},
		},
		{
			name:        "javascript urls dropped",
			input:       "[x](javascript:alert(1))",
			notContains: []string{"javascript:"},
		},
		{
			name:     "emoji aliases expanded",
			input:    "tasty :smile:",
			contains: []string{"😄"},
		},
		{
			name:     "headings up to h3",
			input:    "# Title",
			contains: []string{"<h1>Title</h1>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Render(tt.input)
			for _, c := range tt.contains {
				assert.Contains(t, out, c)
			}
			for _, c := range tt.notContains {
				assert.NotContains(t, out, c)
			}
		})
	}
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "", Render(""))
	assert.Equal(t, "", Render("   \n"))
}

func TestAllowedTagsIsCopy(t *testing.T) {
	tags := AllowedTags()
	tags[0] = "script"
	assert.Equal(t, "a", AllowedTags()[0])
}
