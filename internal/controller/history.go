package controller

// History is the in-content back stack. Consecutive duplicates are never
// stored.
type History struct {
	entries []string
}

// Push appends u unless it equals the last entry.
func (h *History) Push(u string) bool {
	if n := len(h.entries); n > 0 && h.entries[n-1] == u {
		return false
	}
	h.entries = append(h.entries, u)
	return true
}

// Back drops the last entry and returns the one before it.
func (h *History) Back() (string, bool) {
	if len(h.entries) < 2 {
		return "", false
	}
	h.entries = h.entries[:len(h.entries)-1]
	return h.entries[len(h.entries)-1], true
}

func (h *History) Last() string {
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}

func (h *History) Len() int { return len(h.entries) }

func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}

func (h *History) Reset() { h.entries = nil }
