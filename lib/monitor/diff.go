package monitor

import "github.com/onkernel/hypedesk/lib/engine"

// Diff reports whether cur differs from prev: a different container count,
// a container ID missing from prev, or a changed status or run state.
func Diff(prev, cur []engine.Snapshot) bool {
	if len(prev) != len(cur) {
		return true
	}
	byID := make(map[string]engine.Snapshot, len(prev))
	for _, s := range prev {
		byID[s.ID] = s
	}
	for _, c := range cur {
		p, ok := byID[c.ID]
		if !ok || p.Status != c.Status || p.Running != c.Running {
			return true
		}
	}
	return false
}
