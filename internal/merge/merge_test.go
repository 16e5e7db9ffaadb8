package merge

import (
	"strings"
	"testing"
)

func TestTwoWay_ReplaceConflict(t *testing.T) {
	// The exact bytes of this output are part of the tool's contract.
	local := "x\ny\nz\n"
	remote := "x\nY\nz\n"
	got, conflicts := TwoWay([]byte(local), []byte(remote))

	want := "x\n" +
		"<<<<<<< LOCAL\n" +
		"y\n" +
		"=======\n" +
		"Y\n" +
		">>>>>>> REMOTE\n" +
		"z\n"
	if string(got) != want {
		t.Errorf("merge output:\ngot:  %q\nwant: %q", got, want)
	}
	if conflicts != 1 {
		t.Errorf("conflicts = %d, want 1", conflicts)
	}
}

func TestTwoWay_InsertOnlyAdoptedSilently(t *testing.T) {
	got, conflicts := TwoWay([]byte("a\nb\n"), []byte("a\nb\nc\n"))
	if string(got) != "a\nb\nc\n" {
		t.Errorf("merge output = %q, want remote insertion adopted", got)
	}
	if conflicts != 0 {
		t.Errorf("conflicts = %d, want 0", conflicts)
	}
}

func TestTwoWay_DeleteConflictsAgainstEmpty(t *testing.T) {
	got, conflicts := TwoWay([]byte("a\nlocal-only\n"), []byte("a\n"))
	want := "a\n" +
		"<<<<<<< LOCAL\n" +
		"local-only\n" +
		"=======\n" +
		">>>>>>> REMOTE\n"
	if string(got) != want {
		t.Errorf("merge output:\ngot:  %q\nwant: %q", got, want)
	}
	if conflicts != 1 {
		t.Errorf("conflicts = %d, want 1", conflicts)
	}
}

func TestTwoWay_IdenticalInputs(t *testing.T) {
	// merge(local, local) == local, no markers.
	in := "one\ntwo\nthree\n"
	got, conflicts := TwoWay([]byte(in), []byte(in))
	if string(got) != in {
		t.Errorf("merge(x, x) = %q, want %q", got, in)
	}
	if conflicts != 0 {
		t.Errorf("conflicts = %d, want 0", conflicts)
	}
	if CountMarkers(got) != 0 {
		t.Error("markers present in identity merge")
	}
}

func TestTwoWay_EmptyLocal(t *testing.T) {
	got, conflicts := TwoWay(nil, []byte("r1\nr2\n"))
	if string(got) != "r1\nr2\n" || conflicts != 0 {
		t.Errorf("merge(empty, remote) = %q (%d conflicts)", got, conflicts)
	}
}

func TestTwoWay_EmptyRemotePreservesLocal(t *testing.T) {
	got, _ := TwoWay([]byte("l1\nl2\n"), nil)
	if !strings.Contains(string(got), "l1\nl2\n") {
		t.Errorf("local lines lost: %q", got)
	}
	assertMarkersPaired(t, string(got))
}

func TestTwoWay_TrailingNewline(t *testing.T) {
	tests := []struct {
		name          string
		local, remote string
		wantTail      bool
	}{
		{"both end with newline", "a\n", "a\nb\n", true},
		{"only local ends", "a\nx", "a\n", true},
		{"only remote ends", "a", "a\nb\n", true},
		{"neither ends", "a\nx", "a\nb", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := TwoWay([]byte(tt.local), []byte(tt.remote))
			if len(got) == 0 {
				t.Fatal("empty merge output")
			}
			hasTail := got[len(got)-1] == '\n'
			if hasTail != tt.wantTail {
				t.Errorf("trailing newline = %v, want %v (out %q)", hasTail, tt.wantTail, got)
			}
			if strings.HasSuffix(string(got), "\n\n") {
				t.Errorf("doubled trailing newline: %q", got)
			}
		})
	}
}

// assertMarkersPaired checks markers appear only as whole lines, in order,
// and fully paired.
func assertMarkersPaired(t *testing.T, content string) {
	t.Helper()
	state := 0 // 0 outside, 1 after LOCAL, 2 after separator
	for _, line := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
		switch line {
		case MarkerLocal:
			if state != 0 {
				t.Fatalf("unbalanced %s", MarkerLocal)
			}
			state = 1
		case MarkerSep:
			if state != 1 {
				t.Fatalf("separator outside hunk")
			}
			state = 2
		case MarkerRemote:
			if state != 2 {
				t.Fatalf("unbalanced %s", MarkerRemote)
			}
			state = 0
		default:
			if strings.Contains(line, "<<<<<<<") || strings.Contains(line, ">>>>>>>") {
				t.Fatalf("marker embedded in line %q", line)
			}
		}
	}
	if state != 0 {
		t.Fatal("unterminated conflict hunk")
	}
}

func TestTwoWay_MarkersAlwaysPaired(t *testing.T) {
	cases := [][2]string{
		{"a\nb\nc\n", "a\nB\nc\n"},
		{"a\nb\n", "x\ny\nz\n"},
		{"1\n2\n3\n4\n", "1\n3\n5\n"},
		{"only-local\n", ""},
	}
	for _, c := range cases {
		got, _ := TwoWay([]byte(c[0]), []byte(c[1]))
		assertMarkersPaired(t, string(got))
	}
}

func TestApply_Classification(t *testing.T) {
	remote := []byte("r\n")

	if r := Apply(nil, false, remote); r.Status != StatusAdd || string(r.Content) != "r\n" {
		t.Errorf("missing local: %+v", r)
	}
	if r := Apply(nil, true, remote); r.Status != StatusReplace || string(r.Content) != "r\n" {
		t.Errorf("empty local: %+v", r)
	}
	if r := Apply([]byte("r\n"), true, remote); r.Status != StatusSame {
		t.Errorf("equal content: %+v", r)
	}
	// Trailing newline difference alone is SAME.
	if r := Apply([]byte("r"), true, remote); r.Status != StatusSame {
		t.Errorf("newline-only difference: %+v", r)
	}
	if r := Apply([]byte("l\n"), true, remote); r.Status != StatusUpdate || r.Conflicts != 1 {
		t.Errorf("diverged content: %+v", r)
	}
}
