package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/livyn-inc/cursor-to-notion/internal/config"
	"github.com/livyn-inc/cursor-to-notion/internal/index"
	"github.com/livyn-inc/cursor-to-notion/internal/notion"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindOK},
		{"auth", config.ErrAuthMissing, KindAuthMissing},
		{"corrupt", index.ErrCorrupt, KindIndexCorrupt},
		{"invariant", index.ErrInvariantViolation, KindInvariantViolation},
		{"fatal remote", &notion.APIError{StatusCode: 404}, KindRemoteFatal},
		{"transient remote", &notion.APIError{StatusCode: 500}, KindRemoteFailed},
		{"io", errors.New("disk on fire"), KindIOError},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("%s: Classify = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestExitCode(t *testing.T) {
	r := New()
	r.Add(Result{Path: "a.md", Kind: KindOK})
	r.Add(Result{Path: "b.md", Kind: KindSkipped})
	r.Add(Result{Path: "c.md", Kind: KindMergeConflict})
	if r.ExitCode() != 0 {
		t.Error("conflicts alone must not fail the command")
	}
	if r.Conflicts() != 1 {
		t.Errorf("Conflicts = %d", r.Conflicts())
	}

	r.Add(Result{Path: "d.md", Kind: KindRemoteFatal, Err: errors.New("404")})
	if r.ExitCode() != 1 {
		t.Error("fatal kind must set exit code 1")
	}
}

func TestPrintSummary(t *testing.T) {
	r := New()
	r.Add(Result{Path: "ok.md", Kind: KindOK, URL: "u1"})
	r.Add(Result{Path: "skip.md", Kind: KindSkipped})
	r.Add(Result{Path: "bad.md", Kind: KindRemoteFatal, Err: errors.New("object_not_found")})

	var buf bytes.Buffer
	r.PrintSummary(&buf, false)
	out := buf.String()

	if !strings.Contains(out, "bad.md") || !strings.Contains(out, "object_not_found") {
		t.Errorf("failure row missing:\n%s", out)
	}
	if strings.Contains(out, "ok.md") {
		t.Errorf("quiet success listed without verbose:\n%s", out)
	}
	if !strings.Contains(out, "1 ok, 1 skipped, 1 failed") {
		t.Errorf("totals line wrong:\n%s", out)
	}
}
