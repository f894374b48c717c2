package state

import "slices"

// revision marks the journal length at the time a snapshot was taken.
type revision struct {
	id  int
	len int
}

// journal is an undo log. Each entry restores exactly what one write
// changed; reverting runs entries newest first.
type journal struct {
	undo      []func()
	revisions []revision // ascending by id and len
	nextID    int
}

func (j *journal) record(undo func()) { j.undo = append(j.undo, undo) }

func (j *journal) length() int { return len(j.undo) }

func (j *journal) snapshot() int {
	id := j.nextID
	j.nextID++
	j.revisions = append(j.revisions, revision{id: id, len: len(j.undo)})
	return id
}

// revertTo undoes everything after revision id and forgets id and every
// later revision. It reports false for an unknown id.
func (j *journal) revertTo(id int) bool {
	i, found := slices.BinarySearchFunc(j.revisions, id, func(r revision, id int) int { return r.id - id })
	if !found {
		return false
	}
	mark := j.revisions[i].len
	for k := len(j.undo) - 1; k >= mark; k-- {
		j.undo[k]()
		j.undo[k] = nil
	}
	j.undo = j.undo[:mark]
	j.revisions = j.revisions[:i]
	return true
}

func (j *journal) reset() {
	clear(j.undo)
	j.undo = j.undo[:0]
	j.revisions = j.revisions[:0]
}
