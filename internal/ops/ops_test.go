package ops

import (
	"context"
	"sync"
	"testing"
	"time"

	"stencil/internal/billing"
	"stencil/internal/config"
	"stencil/internal/db"
	"stencil/internal/document"
)

func newTestEnv(t *testing.T) *Env {
	t.Helper()
	baseDir := t.TempDir()
	database, err := db.Init(baseDir)
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	env, err := NewEnv(baseDir, database, config.DefaultConfig())
	if err != nil {
		t.Fatalf("NewEnv failed: %v", err)
	}
	return env
}

// recordingNotifier captures billing events for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	charges []billing.Event
	refunds []billing.Event
}

func (n *recordingNotifier) EditCharged(_ context.Context, ev billing.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.charges = append(n.charges, ev)
}

func (n *recordingNotifier) FeeRefunded(_ context.Context, ev billing.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refunds = append(n.refunds, ev)
}

const letterTemplate = `Name: {name}
Date: {date}
Phone: {phone}
City: {city}
Notes: {notes?}`

func letterValues() map[string]string {
	return map[string]string{
		"name":  "Ada Lovelace",
		"date":  "2026-08-01",
		"phone": "555-0100",
		"city":  "London",
	}
}

// mustParse registers a template and returns its id.
func mustParse(t *testing.T, env *Env, name, body string) string {
	t.Helper()
	out, err := ParseTemplate(context.Background(), env, ParseTemplateInput{
		Name: name, Format: "text", Body: body,
	})
	if err != nil {
		t.Fatalf("ParseTemplate(%s) failed: %v", name, err)
	}
	return out.Template.ID
}

// mustGenerate produces one completed document and returns its result.
func mustGenerate(t *testing.T, env *Env, templateID string, values map[string]string) GenerateResult {
	t.Helper()
	out, err := GenerateBatch(context.Background(), env, GenerateBatchInput{
		Requests: []GenerateRequest{{TemplateID: templateID, Values: values}},
	})
	if err != nil {
		t.Fatalf("GenerateBatch failed: %v", err)
	}
	r := out.Results[0]
	if r.Status != document.StatusCompleted {
		t.Fatalf("generation failed: %s %s", r.ErrorCode, r.ErrorMessage)
	}
	return r
}

// pinClock fixes the env clock so billing cycles are stable in tests.
func pinClock(env *Env, t time.Time) {
	env.Now = func() time.Time { return t }
}
