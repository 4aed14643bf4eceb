package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	t.Parallel()

	p := NewTelegramPolicy()

	tests := map[string]struct {
		in   string
		want string
	}{
		"empty":      {"", ""},
		"whitespace": {"  \n ", ""},
		"plain":      {"Just text", "Just text"},
		"emphasis":   {"This is **bold** and _italic_", "This is bold and italic"},
		"entities":   {"Tom & Jerry < 3", "Tom & Jerry < 3"},
		"heading":    {"# Title\n\nBody", "Title\n\nBody"},
		"code":       {"Use `go test`", "Use go test"},
		"link":       {"See [docs](https://example.com)", "See docs"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.PlainText(tt.in))
		})
	}
}

func TestPlainTextLists(t *testing.T) {
	t.Parallel()

	out := NewTelegramPolicy().PlainText("Steps:\n\n- one\n- two")
	assert.Contains(t, out, "- one")
	assert.Contains(t, out, "- two")
}
