package notion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Getting Started", "getting-started"},
		{"  Trim  me  ", "trim-me"},
		{"What's new?", "whats-new"},
		{"snake_case & more", "snake-case-more"},
		{"Ünïcödé Tïtlé", "ünïcödé-tïtlé"},
		{"日本語のページ", "日本語のページ"},
		{"ﬁle", "file"},
		{"---", DefaultSlug},
		{"", DefaultSlug},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Slugify(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Slugify(tt.input))
		})
	}
}
