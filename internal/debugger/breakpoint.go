package debugger

import (
	"sync"

	"github.com/dshills/luadap/internal/interp"
)

// Registry holds the statement spans that should pause execution, keyed
// by file path. Every span stored for a file came from parsing that
// exact file; setBreakpoints replaces a file's entry wholesale rather
// than merging.
//
// ShouldBreak is called by the execution controller before every
// statement, so the registry lock is held only for the map lookup and
// never across anything that can block.
type Registry struct {
	mu    sync.Mutex
	files map[string]map[interp.Span]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		files: make(map[string]map[interp.Span]struct{}),
	}
}

// ReplaceFile installs spans as the complete breakpoint set for path,
// discarding whatever was there before.
func (r *Registry) ReplaceFile(path string, spans []interp.Span) {
	set := make(map[interp.Span]struct{}, len(spans))
	for _, span := range spans {
		set[span] = struct{}{}
	}

	r.mu.Lock()
	r.files[path] = set
	r.mu.Unlock()
}

// ClearFile removes every breakpoint for path.
func (r *Registry) ClearFile(path string) {
	r.mu.Lock()
	delete(r.files, path)
	r.mu.Unlock()
}

// ShouldBreak reports whether span is a registered breakpoint in path.
func (r *Registry) ShouldBreak(path string, span interp.Span) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.files[path]
	if !ok {
		return false
	}
	_, hit := set[span]
	return hit
}

// ResolveLines matches requested 1-based lines against the statement
// spans of a freshly parsed program. A line is verified only when some
// statement starts exactly there; there is no nearest-statement
// fallback. The returned spans are the matches (requests without a
// match are dropped), and verified holds one flag per requested line in
// request order.
func ResolveLines(prog interp.Program, lines []int) (spans []interp.Span, verified []bool) {
	byLine := make(map[int]interp.Span)
	for _, span := range prog.StatementSpans() {
		if _, ok := byLine[span.Line]; !ok {
			byLine[span.Line] = span
		}
	}

	verified = make([]bool, len(lines))
	for i, line := range lines {
		span, ok := byLine[line-1]
		if !ok {
			continue
		}
		verified[i] = true
		spans = append(spans, span)
	}
	return spans, verified
}
