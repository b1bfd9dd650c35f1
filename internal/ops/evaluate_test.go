package ops

import (
	"context"
	"testing"
	"time"

	"stencil/internal/errors"
)

func TestEvaluateEdit_WithinQuota(t *testing.T) {
	env := newTestEnv(t)
	id := mustParse(t, env, "letter", letterTemplate)
	r := mustGenerate(t, env, id, letterValues())

	// Three changed keys against a quota of three: free, no fork.
	next := letterValues()
	next["name"] = "Grace Hopper"
	next["date"] = "2026-08-02"
	next["phone"] = "555-0199"

	out, err := EvaluateEdit(context.Background(), env, EvaluateEditInput{
		DocumentID: r.DocumentID, NewValues: next,
	})
	if err != nil {
		t.Fatalf("EvaluateEdit failed: %v", err)
	}
	if len(out.Decision.ChangedKeys) != 3 {
		t.Errorf("changed keys = %v, want 3", out.Decision.ChangedKeys)
	}
	if out.Decision.FeeCents != 0 || out.Decision.Fork {
		t.Errorf("within quota should be free: %+v", out.Decision)
	}
	if out.QuotaRemaining != 3 {
		t.Errorf("quota remaining = %d, want 3", out.QuotaRemaining)
	}
}

func TestEvaluateEdit_OverQuota(t *testing.T) {
	env := newTestEnv(t)
	id := mustParse(t, env, "letter", letterTemplate)
	r := mustGenerate(t, env, id, letterValues())

	next := letterValues()
	next["name"] = "Grace Hopper"
	next["date"] = "2026-08-02"
	next["phone"] = "555-0199"
	next["city"] = "New York"

	out, err := EvaluateEdit(context.Background(), env, EvaluateEditInput{
		DocumentID: r.DocumentID, NewValues: next,
	})
	if err != nil {
		t.Fatalf("EvaluateEdit failed: %v", err)
	}
	if out.Decision.FeeCents != env.Cfg.EditFeeCents {
		t.Errorf("fee = %d, want %d", out.Decision.FeeCents, env.Cfg.EditFeeCents)
	}
	if !out.Decision.Fork {
		t.Error("over quota must fork")
	}
}

func TestEvaluateEdit_IsDryRun(t *testing.T) {
	env := newTestEnv(t)
	id := mustParse(t, env, "letter", letterTemplate)
	r := mustGenerate(t, env, id, letterValues())

	next := letterValues()
	next["name"] = "Grace Hopper"
	for i := 0; i < 3; i++ {
		out, err := EvaluateEdit(context.Background(), env, EvaluateEditInput{
			DocumentID: r.DocumentID, NewValues: next,
		})
		if err != nil {
			t.Fatalf("EvaluateEdit failed: %v", err)
		}
		// Repeated evaluation never consumes quota.
		if out.QuotaRemaining != env.Cfg.FreeEditQuota {
			t.Errorf("evaluation consumed quota: remaining = %d", out.QuotaRemaining)
		}
	}
}

func TestEvaluateEdit_ReportsCycle(t *testing.T) {
	env := newTestEnv(t)
	pinClock(env, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	id := mustParse(t, env, "letter", letterTemplate)
	r := mustGenerate(t, env, id, letterValues())

	out, err := EvaluateEdit(context.Background(), env, EvaluateEditInput{
		DocumentID: r.DocumentID, NewValues: letterValues(),
	})
	if err != nil {
		t.Fatalf("EvaluateEdit failed: %v", err)
	}
	if out.Cycle != "2026-08" {
		t.Errorf("cycle = %q, want 2026-08", out.Cycle)
	}
}

func TestEvaluateEdit_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := EvaluateEdit(context.Background(), env, EvaluateEditInput{
		DocumentID: "missing", NewValues: map[string]string{},
	})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}
