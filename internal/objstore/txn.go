package objstore

import "fmt"

// refIntent is one staged ref mutation inside a Txn: move Path from
// Expected to New (New=="" deletes, Expected=="" requires absence).
type refIntent struct {
	Path     string
	Expected string
	New      string
}

// Txn batches ref updates so that either all of them land or none do.
// It does not give cross-process serializability beyond what per-ref CAS
// already provides: CommitTxn applies each staged intent's CompareAndSet
// in order, and rolls back every intent it already applied the moment one
// fails. The moves are not isolated: while CommitTxn runs, a concurrent
// reader can observe some of the transaction's ref moves and not others.
type Txn struct {
	refs    *RefStore
	intents []refIntent
	done    bool
}

// BeginTxn starts a new transaction against store.
func BeginTxn(store *RefStore) *Txn {
	return &Txn{refs: store}
}

// StageRefUpdate records an intended move of ref from expected to new.
// expected="" asserts the ref must not currently exist (a create).
func (t *Txn) StageRefUpdate(ref, expected, new string) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	if new == "" {
		return fmt.Errorf("StageRefUpdate requires a non-empty new value; use StageRefDelete")
	}
	t.intents = append(t.intents, refIntent{Path: ref, Expected: expected, New: new})
	return nil
}

// StageRefDelete records an intended removal of ref, which must currently
// point at expected.
func (t *Txn) StageRefDelete(ref, expected string) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	if expected == "" {
		return fmt.Errorf("StageRefDelete requires a non-empty expected value")
	}
	t.intents = append(t.intents, refIntent{Path: ref, Expected: expected, New: ""})
	return nil
}

// CommitTxn applies every staged intent via CompareAndSet. If any intent's
// precondition no longer holds, everything already applied in this call is
// reverted (by CAS-ing each applied ref back to its prior value) and a
// *CASConflict is returned, so a failed transaction leaves no ref moved.
// Errors from those reverting CAS calls are not reported, and a reader
// running at the same time as CommitTxn can see a subset of the moves.
func (t *Txn) CommitTxn() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true

	applied := make([]refIntent, 0, len(t.intents))
	for _, in := range t.intents {
		if err := t.refs.CompareAndSet(in.Path, in.Expected, in.New); err != nil {
			for i := len(applied) - 1; i >= 0; i-- {
				a := applied[i]
				_ = t.refs.CompareAndSet(a.Path, a.New, a.Expected)
			}
			return fmt.Errorf("transaction aborted on %s: %w", in.Path, err)
		}
		applied = append(applied, in)
	}
	return nil
}

// RollbackTxn discards all staged intents without touching the store.
func (t *Txn) RollbackTxn() {
	t.done = true
	t.intents = nil
}
