// Package report collects per-item outcomes of a sync command and renders
// the end-of-run summary. Per-item failures never abort the walk; they are
// gathered here and decide the process exit code at the end.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/olekukonko/tablewriter"

	"github.com/livyn-inc/cursor-to-notion/internal/config"
	"github.com/livyn-inc/cursor-to-notion/internal/index"
	"github.com/livyn-inc/cursor-to-notion/internal/notion"
)

// Kind classifies an outcome.
type Kind string

const (
	KindOK                 Kind = "ok"
	KindSkipped            Kind = "skipped"
	KindAuthMissing        Kind = "auth_missing"
	KindURLMalformed       Kind = "url_malformed"
	KindIndexCorrupt       Kind = "index_corrupt"
	KindInvariantViolation Kind = "invariant_violation"
	KindRemoteFailed       Kind = "remote_failed"
	KindRemoteFatal        Kind = "remote_fatal"
	KindMergeConflict      Kind = "merge_conflict"
	KindIOError            Kind = "io_error"
)

// fatal kinds force a non-zero exit.
var fatal = map[Kind]bool{
	KindAuthMissing:        true,
	KindURLMalformed:       true,
	KindIndexCorrupt:       true,
	KindInvariantViolation: true,
	KindRemoteFailed:       true,
	KindRemoteFatal:        true,
	KindIOError:            true,
}

// Classify maps an error to its kind. Unrecognized errors count as I/O
// failures of the affected item.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, config.ErrAuthMissing):
		return KindAuthMissing
	case errors.Is(err, index.ErrCorrupt):
		return KindIndexCorrupt
	case errors.Is(err, index.ErrInvariantViolation):
		return KindInvariantViolation
	case notion.IsFatal(err):
		return KindRemoteFatal
	default:
		var apiErr *notion.APIError
		if errors.As(err, &apiErr) {
			return KindRemoteFailed
		}
		return KindIOError
	}
}

// Result is one item's outcome.
type Result struct {
	Path   string
	URL    string
	Action string
	Kind   Kind
	Err    error
}

// Report accumulates results. Safe for concurrent Add from pool workers.
type Report struct {
	mu      sync.Mutex
	results []Result
}

// New creates an empty report.
func New() *Report {
	return &Report{}
}

// Add records one outcome.
func (r *Report) Add(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// AddError records a failed item, classifying the error.
func (r *Report) AddError(path, url, action string, err error) {
	r.Add(Result{Path: path, URL: url, Action: action, Kind: Classify(err), Err: err})
}

// Conflicts counts merge-conflict results.
func (r *Report) Conflicts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, res := range r.results {
		if res.Kind == KindMergeConflict {
			n++
		}
	}
	return n
}

// Failed reports whether any fatal kind was recorded.
func (r *Report) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		if fatal[res.Kind] {
			return true
		}
	}
	return false
}

// ExitCode is 1 iff any fatal kind occurred, else 0.
func (r *Report) ExitCode() int {
	if r.Failed() {
		return 1
	}
	return 0
}

// Results returns a sorted copy of all outcomes.
func (r *Report) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, len(r.results))
	copy(out, r.results)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// PrintSummary renders the per-item table plus a one-line total. Quiet
// successes are folded into the totals unless verbose is set.
func (r *Report) PrintSummary(w io.Writer, verbose bool) {
	results := r.Results()

	ok, skipped := 0, 0
	var rows []Result
	for _, res := range results {
		switch res.Kind {
		case KindOK:
			ok++
			if verbose {
				rows = append(rows, res)
			}
		case KindSkipped:
			skipped++
			if verbose {
				rows = append(rows, res)
			}
		default:
			rows = append(rows, res)
		}
	}

	if len(rows) > 0 {
		table := tablewriter.NewWriter(w)
		table.Header("Path", "Action", "Status", "Detail")
		for _, res := range rows {
			detail := res.URL
			if res.Err != nil {
				detail = res.Err.Error()
			}
			table.Append(res.Path, res.Action, string(res.Kind), detail)
		}
		table.Render()
	}

	failed := len(results) - ok - skipped
	fmt.Fprintf(w, "\n%d ok, %d skipped, %d failed\n", ok, skipped, failed)
}
