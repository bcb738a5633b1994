// Package dnd describes drag-and-drop results delivered by the UI on drag
// end and commits them against the current order of a list.
package dnd

// Location is one end of a drag gesture.
type Location struct {
	ListID string `json:"listId"`
	Index  int    `json:"index"`
}

// Result is delivered once per completed drag. Destination is nil when the
// item was dropped outside any list. ItemID, when set, identifies the dragged
// entity and takes precedence over Source.Index; BeforeID, when set alongside
// ItemID, names the entity the item was dropped in front of and takes
// precedence over Destination.Index.
type Result struct {
	ItemID      string    `json:"itemId,omitempty"`
	BeforeID    string    `json:"beforeId,omitempty"`
	Source      Location  `json:"source"`
	Destination *Location `json:"destination,omitempty"`
}

// IsNoop reports whether committing r cannot change order: there is no
// destination, or the destination is exactly the source. Results carrying an
// ItemID are only settled at commit time, against the current order.
func (r Result) IsNoop() bool {
	if r.Destination == nil {
		return true
	}
	if r.ItemID != "" {
		return false
	}
	return r.Destination.ListID == r.Source.ListID && r.Destination.Index == r.Source.Index
}

// Move removes the element at from and reinserts it at to in the shortened
// slice. Indices are clamped to the valid range; the input is not modified.
func Move[T any](list []T, from, to int) []T {
	out := make([]T, len(list))
	copy(out, list)
	if len(out) == 0 || from < 0 || from >= len(out) {
		return out
	}
	to = clamp(to, 0, len(out)-1)
	if from == to {
		return out
	}
	item := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out, item)
	copy(out[to+1:], out[to:len(out)-1])
	out[to] = item
	return out
}

// Resolve turns r into (from, to) indices against the current ids, in
// display order. ok is false when the result is a no-op, names a foreign
// list, or its item no longer exists.
func Resolve(r Result, listID string, ids []string) (from, to int, ok bool) {
	if r.IsNoop() {
		return 0, 0, false
	}
	if r.Source.ListID != listID || r.Destination.ListID != listID {
		return 0, 0, false
	}
	from = r.Source.Index
	if r.ItemID != "" {
		from = indexOf(ids, r.ItemID)
	}
	if from < 0 || from >= len(ids) {
		return 0, 0, false
	}
	to = r.Destination.Index
	if r.ItemID != "" && r.BeforeID != "" {
		before := indexOf(ids, r.BeforeID)
		if before >= 0 {
			// Position of "before" once the dragged item is removed.
			to = before
			if before > from {
				to = before - 1
			}
		}
	}
	to = clamp(to, 0, len(ids)-1)
	if from == to {
		return 0, 0, false
	}
	return from, to, true
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
