package objstore

import "testing"

func TestTxnCommitAppliesAllIntents(t *testing.T) {
	refs := newTestRefStore(t)
	if err := refs.CompareAndSet("layers/global", "", "base-hash"); err != nil {
		t.Fatal(err)
	}

	txn := BeginTxn(refs)
	if err := txn.StageRefUpdate("layers/global", "base-hash", "new-hash"); err != nil {
		t.Fatal(err)
	}
	if err := txn.StageRefUpdate("layers/local", "", "local-hash"); err != nil {
		t.Fatal(err)
	}
	if err := txn.CommitTxn(); err != nil {
		t.Fatal(err)
	}

	globalHash, _, _ := refs.Read("layers/global")
	localHash, _, _ := refs.Read("layers/local")
	if globalHash != "new-hash" || localHash != "local-hash" {
		t.Fatalf("unexpected post-commit state: global=%q local=%q", globalHash, localHash)
	}
}

func TestTxnRollsBackOnPartialFailure(t *testing.T) {
	refs := newTestRefStore(t)
	if err := refs.CompareAndSet("layers/global", "", "base-hash"); err != nil {
		t.Fatal(err)
	}
	// Simulate a concurrent writer moving layers/local out from under the txn.
	if err := refs.CompareAndSet("layers/local", "", "concurrent-hash"); err != nil {
		t.Fatal(err)
	}

	txn := BeginTxn(refs)
	if err := txn.StageRefUpdate("layers/global", "base-hash", "new-hash"); err != nil {
		t.Fatal(err)
	}
	// Stale expected value: the txn thinks layers/local doesn't exist yet.
	if err := txn.StageRefUpdate("layers/local", "", "local-hash"); err != nil {
		t.Fatal(err)
	}

	err := txn.CommitTxn()
	if err == nil {
		t.Fatal("expected CommitTxn to fail on the second intent")
	}

	// layers/global must have been rolled back to base-hash even though its
	// own CAS succeeded before the failure.
	globalHash, _, _ := refs.Read("layers/global")
	if globalHash != "base-hash" {
		t.Fatalf("expected rollback to base-hash, got %q", globalHash)
	}
	localHash, _, _ := refs.Read("layers/local")
	if localHash != "concurrent-hash" {
		t.Fatalf("expected untouched concurrent-hash, got %q", localHash)
	}
}

func TestTxnCannotBeReused(t *testing.T) {
	refs := newTestRefStore(t)
	txn := BeginTxn(refs)
	if err := txn.StageRefUpdate("layers/global", "", "hash1"); err != nil {
		t.Fatal(err)
	}
	if err := txn.CommitTxn(); err != nil {
		t.Fatal(err)
	}
	if err := txn.StageRefUpdate("layers/local", "", "hash2"); err == nil {
		t.Fatal("expected error staging on an already-committed transaction")
	}
}

func TestTxnStageRefDeleteRequiresExpected(t *testing.T) {
	refs := newTestRefStore(t)
	txn := BeginTxn(refs)
	if err := txn.StageRefDelete("layers/global", ""); err == nil {
		t.Fatal("expected error for StageRefDelete with empty expected")
	}
}

func TestTxnRollbackDiscardsIntents(t *testing.T) {
	refs := newTestRefStore(t)
	txn := BeginTxn(refs)
	if err := txn.StageRefUpdate("layers/global", "", "hash1"); err != nil {
		t.Fatal(err)
	}
	txn.RollbackTxn()

	_, ok, err := refs.Read("layers/global")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected rollback to leave no trace on the ref store")
	}
	if err := txn.StageRefUpdate("layers/global", "", "hash2"); err == nil {
		t.Fatal("expected error staging on a rolled-back transaction")
	}
}
