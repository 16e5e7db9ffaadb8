// Package merge implements the line-level two-way merge used when a pull
// meets local edits. Merging is pure: bytes in, bytes out, no filesystem
// access, which keeps it property-testable in isolation.
package merge

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Conflict marker lines, byte-exact. They appear in output only as whole
// lines and always as a complete hunk.
const (
	MarkerLocal  = "<<<<<<< LOCAL"
	MarkerSep    = "======="
	MarkerRemote = ">>>>>>> REMOTE"
)

// Status classifies what a merge did.
type Status string

const (
	// StatusSame means the sides were equal after trailing-newline
	// normalization; nothing to write.
	StatusSame Status = "SAME"
	// StatusAdd means no local content existed; remote adopted verbatim.
	StatusAdd Status = "ADD"
	// StatusReplace means local was empty; remote adopted verbatim.
	StatusReplace Status = "REPLACE"
	// StatusUpdate means both sides had content and a line merge ran.
	StatusUpdate Status = "UPDATE"
)

// Result is the outcome of one merge.
type Result struct {
	Status    Status
	Content   []byte
	Conflicts int
}

// Apply merges remote content into local content. localExists distinguishes
// a missing file from an empty one.
func Apply(local []byte, localExists bool, remote []byte) Result {
	switch {
	case !localExists:
		return Result{Status: StatusAdd, Content: remote}
	case normalizeTail(string(local)) == normalizeTail(string(remote)):
		return Result{Status: StatusSame, Content: local}
	case len(local) == 0:
		return Result{Status: StatusReplace, Content: remote}
	}
	merged, conflicts := TwoWay(local, remote)
	return Result{Status: StatusUpdate, Content: merged, Conflicts: conflicts}
}

// TwoWay merges two texts line by line. Matching ranges copy through,
// remote-only insertions are adopted silently, and local-only or diverging
// ranges become conflict hunks. Returns the merged bytes and the number of
// conflict hunks emitted.
func TwoWay(local, remote []byte) ([]byte, int) {
	localLines := splitLines(string(local))
	remoteLines := splitLines(string(remote))

	sm := difflib.NewMatcher(localLines, remoteLines)
	var out []string
	conflicts := 0

	for _, op := range sm.GetOpCodes() {
		switch op.Tag {
		case 'e': // equal
			out = append(out, localLines[op.I1:op.I2]...)
		case 'i': // insert: remote additions adopted silently
			out = append(out, remoteLines[op.J1:op.J2]...)
		case 'd': // delete: local-only lines conflict against nothing
			out = append(out, MarkerLocal)
			out = append(out, localLines[op.I1:op.I2]...)
			out = append(out, MarkerSep, MarkerRemote)
			conflicts++
		case 'r': // replace: both sides shown
			out = append(out, MarkerLocal)
			out = append(out, localLines[op.I1:op.I2]...)
			out = append(out, MarkerSep)
			out = append(out, remoteLines[op.J1:op.J2]...)
			out = append(out, MarkerRemote)
			conflicts++
		}
	}

	text := strings.Join(out, "\n")
	if len(out) > 0 && (endsWithNewline(local) || endsWithNewline(remote)) {
		text += "\n"
	}
	return []byte(text), conflicts
}

// CountMarkers counts conflict-marker lines in content; used by the pull
// summary.
func CountMarkers(content []byte) int {
	n := 0
	for _, line := range splitLines(string(content)) {
		if line == MarkerLocal || line == MarkerSep || line == MarkerRemote {
			n++
		}
	}
	return n
}

// splitLines splits on \n, dropping the final empty piece a trailing
// newline produces. Empty input yields no lines.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

func normalizeTail(s string) string {
	return strings.TrimSuffix(s, "\n")
}

func endsWithNewline(b []byte) bool {
	return len(b) > 0 && b[len(b)-1] == '\n'
}
