package engine

import (
	"github.com/roach88/treesync/internal/diff"
	"github.com/roach88/treesync/internal/ir"
)

// changeQueue is a FIFO of changes waiting to be dispatched.
//
// Member data puts that stop above an entry are expanded into one put per
// entry and pushed back onto the queue instead of being applied recursively.
// Not safe for concurrent use; a dispatcher owns its queue.
type changeQueue struct {
	changes []diff.Change
}

func newChangeQueue() *changeQueue {
	return &changeQueue{changes: make([]diff.Change, 0, 16)}
}

// Enqueue adds changes to the back of the queue.
func (q *changeQueue) Enqueue(cs ...diff.Change) {
	q.changes = append(q.changes, cs...)
}

// TryDequeue removes and returns the front change.
// Returns (diff.Change{}, false) if the queue is empty.
func (q *changeQueue) TryDequeue() (diff.Change, bool) {
	if len(q.changes) == 0 {
		return diff.Change{}, false
	}
	c := q.changes[0]

	// Drop the slot's reference so the value can be collected.
	q.changes[0] = diff.Change{}
	if len(q.changes) == 1 {
		q.changes = q.changes[:0]
	} else {
		q.changes = q.changes[1:]
	}
	return c, true
}

// Len returns the current queue length.
func (q *changeQueue) Len() int {
	return len(q.changes)
}

// Expand splits a member data put that stops above an entry into one put per
// key of its object value, in canonical key order. Each result path is one
// segment longer than the input.
func Expand(p MemberPatch) ([]diff.Change, error) {
	c := p.Change()
	obj, ok := p.Value().(ir.IRObject)
	if !ok {
		return nil, NewUnsupportedShapeError(c.Path, "expected an object of member data, got %s", ir.TypeName(p.Value()))
	}
	out := make([]diff.Change, 0, len(obj))
	for _, k := range obj.SortedKeys() {
		out = append(out, diff.Change{
			Kind:  diff.Put,
			Path:  c.Path.Append(ir.Key(k)),
			Value: obj[k],
		})
	}
	return out, nil
}
