package ops

import (
	"context"
	"testing"

	"stencil/internal/errors"
)

func TestHistory_TracksLineage(t *testing.T) {
	env := newTestEnv(t)
	id := mustParse(t, env, "letter", letterTemplate)
	r := mustGenerate(t, env, id, letterValues())

	// One free edit, then a paid fork.
	next := letterValues()
	next["name"] = "Grace Hopper"
	if _, err := ApplyEdit(context.Background(), env, ApplyEditInput{
		DocumentID: r.DocumentID, NewValues: next,
	}); err != nil {
		t.Fatalf("free edit failed: %v", err)
	}
	next["date"] = "2026-08-02"
	next["phone"] = "555-0199"
	next["city"] = "New York"
	forked, err := ApplyEdit(context.Background(), env, ApplyEditInput{
		DocumentID: r.DocumentID, NewValues: next,
	})
	if err != nil {
		t.Fatalf("fork edit failed: %v", err)
	}

	out, err := History(context.Background(), env, HistoryInput{LineageID: r.LineageID})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(out.Instances) != 2 {
		t.Fatalf("instances = %d, want 2", len(out.Instances))
	}
	if len(out.Edits) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(out.Edits))
	}
	seen := map[string]bool{}
	for _, inst := range out.Instances {
		seen[inst.ID] = true
		if inst.ID == forked.Document.ID && !inst.Current {
			t.Error("fork should be the current instance")
		}
		if inst.ID == r.DocumentID && inst.Current {
			t.Error("original should be superseded")
		}
	}
	if !seen[r.DocumentID] || !seen[forked.Document.ID] {
		t.Errorf("history missing instances: %v", seen)
	}

	// Resolving by document id, including a superseded one, finds the same
	// lineage.
	byDoc, err := History(context.Background(), env, HistoryInput{DocumentID: r.DocumentID})
	if err != nil {
		t.Fatalf("History by document failed: %v", err)
	}
	if byDoc.LineageID != r.LineageID {
		t.Errorf("lineage = %q, want %q", byDoc.LineageID, r.LineageID)
	}
}

func TestHistory_Validation(t *testing.T) {
	env := newTestEnv(t)

	if _, err := History(context.Background(), env, HistoryInput{}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("empty input: expected INVALID_REQUEST, got %v", err)
	}
	if _, err := History(context.Background(), env, HistoryInput{LineageID: "a", DocumentID: "b"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("both ids: expected INVALID_REQUEST, got %v", err)
	}
	if _, err := History(context.Background(), env, HistoryInput{LineageID: "missing"}); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("unknown lineage: expected NOT_FOUND, got %v", err)
	}
}
