// Package ops implements the engine operations exposed over MCP and the
// CLI. Each operation lives in its own file with explicit Input/Output
// structs.
package ops

import (
	"crypto/rand"
	"database/sql"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"stencil/internal/batch"
	"stencil/internal/billing"
	"stencil/internal/blob"
	"stencil/internal/cache"
	"stencil/internal/config"
	"stencil/internal/db"
	"stencil/internal/editcost"
	"stencil/internal/errors"
	"stencil/internal/extract"
	"stencil/internal/field"
)

// Env bundles the collaborators every operation needs: the database, the
// descriptor cache, the blob store, the batch scheduler, and the per-lineage
// lock registry. Built once at startup and shared.
type Env struct {
	DB         *sql.DB
	Cfg        *config.Config
	Cache      *cache.Cache
	Blobs      *blob.Store
	Billing    billing.Notifier
	Scheduler  *batch.Scheduler
	Locks      *editcost.LockRegistry
	Classifier *field.Classifier
	BaseDir    string
	Logger     *slog.Logger

	// Now is the clock; tests override it to pin billing cycles.
	Now func() time.Time
}

// NewEnv wires an Env from an initialized database and config.
func NewEnv(baseDir string, database *sql.DB, cfg *config.Config) (*Env, error) {
	blobs, err := blob.New(baseDir)
	if err != nil {
		return nil, err
	}
	return &Env{
		DB:         database,
		Cfg:        cfg,
		Cache:      cache.New(cfg.CacheMaxEntries),
		Blobs:      blobs,
		Billing:    &billing.LogNotifier{},
		Scheduler:  batch.New(cfg.MaxWorkers, cfg.SmallBatchJobs, cfg.ComplexityThreshold),
		Locks:      editcost.NewLockRegistry(),
		Classifier: field.NewClassifier(cfg.Synonyms),
		BaseDir:    baseDir,
		Now:        time.Now,
	}, nil
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// descriptor loads the parsed descriptor for a stored template, through the
// cache. Concurrent requests for the same (template, hash) share one parse.
func (e *Env) descriptor(templateID string) (*field.TemplateDescriptor, error) {
	t, err := db.GetTemplate(e.DB, templateID)
	if err != nil {
		return nil, err
	}
	key := cache.Key{TemplateID: t.ID, ContentHash: t.ContentHash}
	return e.Cache.GetOrParse(key, func() (*field.TemplateDescriptor, error) {
		d, err := extract.Extract([]byte(t.Body), t.Format, e.Classifier)
		if err != nil {
			return nil, err
		}
		d.TemplateID = t.ID
		d.ContentHash = t.ContentHash
		return d, nil
	})
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// errorCode extracts the stable code from a typed error, for persistence.
func errorCode(err error) string {
	if e, ok := err.(*errors.Error); ok {
		return string(e.Code)
	}
	return string(errors.ErrInternal)
}
