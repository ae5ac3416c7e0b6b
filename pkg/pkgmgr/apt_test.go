package pkgmgr

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestAptManager_LockPaths(t *testing.T) {
	m := NewAptManager(zerolog.New(nil).Level(zerolog.Disabled))

	paths := m.LockPaths()
	if len(paths) == 0 {
		t.Fatal("expected at least one lock path")
	}
	for _, p := range paths {
		if !strings.HasPrefix(p, "/var/") {
			t.Errorf("unexpected lock path: %s", p)
		}
	}
}

func TestTail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  string
	}{
		{"short string untouched", "hello", 10, "hello"},
		{"trims to whole lines", "first\nsecond\nthird", 8, "third"},
		{"strips surrounding whitespace", "  output  \n", 20, "output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tail(tt.input, tt.limit); got != tt.want {
				t.Errorf("tail(%q, %d) = %q, want %q", tt.input, tt.limit, got, tt.want)
			}
		})
	}
}
