package cli

import (
	"errors"
	"testing"
)

func TestServeExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error exits clean", nil, 0},
		{"serveExitCoder zero", serveExitCoder{code: 0}, 0},
		{"serveExitCoder one", serveExitCoder{code: 1}, 1},
		{"unrelated error defaults to one", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ServeExitCode(tt.err); got != tt.want {
				t.Errorf("ServeExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestServeExitCoderError(t *testing.T) {
	e := serveExitCoder{code: 1}
	if e.Error() != "exit 1" {
		t.Errorf("got %q, want %q", e.Error(), "exit 1")
	}
}
