package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteArgForShell(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "''"},
		{"-la", "-la"},
		{"/var/log", "/var/log"},
		{"hello world", "'hello world'"},
		{"it's", `'it'\''s'`},
		{"~/my dir", `~/'my dir'`},
		{"$HOME", "'$HOME'"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, QuoteArgForShell(c.in), c.in)
	}
}

func TestJoinShellArgs(t *testing.T) {
	assert.Equal(t, "ls -la | wc -l", JoinShellArgs([]string{"ls -la | wc -l"}))
	assert.Equal(t, "ls -la '/tmp/a b'", JoinShellArgs([]string{"ls", "-la", "/tmp/a b"}))
	assert.Equal(t, "", JoinShellArgs(nil))
}
