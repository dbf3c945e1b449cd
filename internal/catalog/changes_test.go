package catalog

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
)

type recordingTarget struct {
	calls []ChangeSet
	err   error
}

func (r *recordingTarget) ApplyChanges(ctx context.Context, changes ChangeSet) error {
	if changes.IsEmpty() {
		return nil
	}
	r.calls = append(r.calls, changes)
	return r.err
}

func (r *recordingTarget) reset() {
	r.calls = nil
}

func TestSynchronizeDispatchesChanges(t *testing.T) {
	ctx := context.Background()
	files := fstest.MapFS{
		"project/main.txt": {Data: []byte("line1\nline2")},
	}
	c := newTestCatalog(t, files, Options{})

	target := &recordingTarget{}
	c.RegisterSyncTarget(target)

	if _, err := c.Synchronize(ctx); err != nil {
		t.Fatalf("initial sync failed: %v", err)
	}
	if len(target.calls) != 1 {
		t.Fatalf("expected 1 change set, got %d", len(target.calls))
	}
	if first := target.calls[0]; len(first.Upserts) != 2 || len(first.Deletions) != 0 {
		t.Fatalf("unexpected first change set: %+v", first)
	}

	target.reset()
	if _, err := c.Synchronize(ctx); err != nil {
		t.Fatalf("unchanged sync failed: %v", err)
	}
	if len(target.calls) != 0 {
		t.Fatalf("expected no dispatch for unchanged tree, got %d", len(target.calls))
	}

	delete(files, "project/main.txt")
	if _, err := c.Synchronize(ctx); err != nil {
		t.Fatalf("removal sync failed: %v", err)
	}
	if len(target.calls) != 1 {
		t.Fatalf("expected 1 change set for removal, got %d", len(target.calls))
	}
	if removal := target.calls[0]; len(removal.Upserts) != 0 || len(removal.Deletions) != 1 || removal.Deletions[0] != "project/main.txt" {
		t.Fatalf("unexpected removal change set: %+v", removal)
	}
}

func TestDispatchChangesJoinsTargetErrors(t *testing.T) {
	c := newTestCatalog(t, fstest.MapFS{}, Options{})

	errA := errors.New("target a")
	errB := errors.New("target b")
	a := &recordingTarget{err: errA}
	b := &recordingTarget{err: errB}
	c.RegisterSyncTarget(a)
	c.RegisterSyncTarget(nil)
	c.RegisterSyncTarget(b)

	err := c.dispatchChanges(context.Background(), ChangeSet{Deletions: []string{"x"}})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both target errors, got %v", err)
	}
	if len(a.calls) != 1 || len(b.calls) != 1 {
		t.Fatalf("expected every target to be called")
	}

	if err := c.dispatchChanges(context.Background(), ChangeSet{}); err != nil {
		t.Fatalf("empty change set should not dispatch: %v", err)
	}
}

func TestChangeSetMerge(t *testing.T) {
	var changes ChangeSet
	if !changes.IsEmpty() {
		t.Fatalf("zero change set should be empty")
	}

	changes.Merge(ChangeSet{Upserts: []Entry{{Path: "a"}}})
	changes.Merge(ChangeSet{Deletions: []string{"b"}})
	changes.Merge(ChangeSet{})

	if len(changes.Upserts) != 1 || len(changes.Deletions) != 1 || changes.IsEmpty() {
		t.Fatalf("unexpected merged change set: %+v", changes)
	}
}

func TestShellTargetReceivesPayload(t *testing.T) {
	if target := newShellTarget(&ShellTargetConfig{Command: "  "}); target != nil {
		t.Fatalf("blank command should not create a target")
	}

	target := newShellTarget(&ShellTargetConfig{Command: `grep -q '"deletions":\["gone.txt"\]'`})
	if target == nil {
		t.Fatalf("expected shell target")
	}
	if err := target.ApplyChanges(context.Background(), ChangeSet{Deletions: []string{"gone.txt"}}); err != nil {
		t.Fatalf("shell target: %v", err)
	}

	failing := newShellTarget(&ShellTargetConfig{Command: "exit 3"})
	if err := failing.ApplyChanges(context.Background(), ChangeSet{Deletions: []string{"x"}}); err == nil {
		t.Fatalf("expected failing command to return an error")
	}
}

func TestMeiliDocumentsUseStableIDs(t *testing.T) {
	docs := makeMeiliDocuments([]Entry{
		{Path: "docs/readme.md", Size: 4},
		{Path: "docs", IsDir: true},
	})
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != entryDocumentID("docs/readme.md") || docs[0].Name != "readme.md" || docs[0].Extension != "md" {
		t.Fatalf("unexpected file document %+v", docs[0])
	}
	if docs[1].Extension != "" || !docs[1].IsDir {
		t.Fatalf("unexpected dir document %+v", docs[1])
	}
	if len(docs[0].ID) != 32 || docs[0].ID == docs[1].ID {
		t.Fatalf("unexpected ids %q %q", docs[0].ID, docs[1].ID)
	}
}
