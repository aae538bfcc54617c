package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/carbonarchive/carbon/internal/archive"
	"github.com/carbonarchive/carbon/internal/carbonlog"
	"github.com/carbonarchive/carbon/internal/cim"
	"github.com/carbonarchive/carbon/internal/config"
	"github.com/carbonarchive/carbon/internal/metrics"
	"github.com/carbonarchive/carbon/internal/oid"
	"github.com/carbonarchive/carbon/internal/storage"
	"github.com/carbonarchive/carbon/internal/strdict"
)

// sourceBackend is the read-only surface the pipeline actually calls.
// storage.Backend and *storage.Manager both satisfy it structurally, so
// fetchSource can hand back a plain backend or, when --storage-cache /
// --storage-fallback is set, a Manager layering a cache and/or fallback in
// front of the configured backend — without widening what carbon itself
// is allowed to do to storage.
type sourceBackend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// pipeline is one invocation's worth of collaborators: a freshly opened
// archive plus the string dictionary it was built against. The archive
// format only ever persists numeric string ids, never string bytes, so an
// archive is only decodable against the exact Dictionary instance that
// built it — carbon never reopens an archive written by an earlier
// process. Every subcommand therefore runs ingest, sort, write, and open
// as one in-memory round trip against a fresh Dictionary.
type pipeline struct {
	Archive *archive.Archive
	Dict    *strdict.Dictionary
}

// fetchSource resolves cfg's configured storage backend and reads the
// named JSON document from it.
func fetchSource(ctx context.Context, key string, rec *metrics.Recorder) ([]byte, error) {
	primary, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("resolving storage backend: %w", err)
	}

	var backend sourceBackend = primary
	label := primary.Type()
	if storageCacheFlag != "" || storageFallbackFlag != "" {
		mgr := storage.NewManager(primary, &storage.Config{
			EnableCache:    storageCacheFlag != "",
			EnableFallback: storageFallbackFlag != "",
			RetryAttempts:  3,
			RetryDelay:     time.Second,
		})
		if storageCacheFlag != "" {
			mgr.SetCache(storage.Local(storageCacheFlag))
			label = label + "+cache"
		}
		if storageFallbackFlag != "" {
			mgr.SetFallback(storage.Local(storageFallbackFlag))
			label = label + "+fallback"
		}
		backend = mgr
	}

	data, err := backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetching %q from %s storage: %w", key, label, err)
	}
	if rec != nil {
		rec.AddBytesRead(len(data))
	}
	carbonlog.Debug("fetched %d bytes for key %q from %s backend", len(data), key, label)
	return data, nil
}

// build ingests jsonData into a fresh archive, applying the sort pass when
// cfg.Mode requests read-optimized order.
func build(jsonData []byte, rec *metrics.Recorder) (*pipeline, error) {
	dict, err := strdict.New()
	if err != nil {
		return nil, fmt.Errorf("creating string dictionary: %w", err)
	}

	b := cim.NewBuilder(dict, oid.NewAllocator())
	roots, err := b.IngestJSON(jsonData)
	if err != nil {
		return nil, fmt.Errorf("ingesting JSON: %w", err)
	}

	if cfg.Mode == config.ModeReadOptimized {
		cim.ResetComparisonCount()
		for _, root := range roots {
			cim.Sort(root, dict)
		}
		if rec != nil {
			rec.AddSortComparisons(int(cim.ComparisonCount()))
		}
	}

	data, err := archive.Write(roots)
	if err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}
	a, err := archive.OpenBytes(data)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	carbonlog.Info("built archive: %d root(s), %d bytes, mode=%s", len(roots), len(data), cfg.Mode)
	return &pipeline{Archive: a, Dict: dict}, nil
}

// loadPipeline runs the full fetch+build round trip for one key.
func loadPipeline(ctx context.Context, key string, rec *metrics.Recorder) (*pipeline, error) {
	data, err := fetchSource(ctx, key, rec)
	if err != nil {
		return nil, err
	}
	return build(data, rec)
}

func visitMask() archive.Mask {
	return archive.Mask(cfg.Archive.DefaultMask)
}
