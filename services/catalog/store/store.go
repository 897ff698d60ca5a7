// Package store persists dated catalog snapshots on the local
// filesystem, one directory per publication date.
package store

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gamevault-backend/lib/timezone"
	"gamevault-backend/services/catalog"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/catalog/store")

const (
	catalogDir     = "gameservers"
	snapshotFile   = "gameservers.json"
	exclusionsFile = "exclusions.json"
	archiveFile    = "gameservers.zip"
	publicFile     = "gameservers.public.json"
)

type Store struct {
	root string
}

func New(root string) Store {
	return Store{root: root}
}

// exclusionsDoc is the on-disk shape of the exclusion ledger. The flat
// excluded_place_ids list is redundant with the map keys; it exists so
// downstream consumers can check membership without parsing records.
type exclusionsDoc struct {
	Exclusions       catalog.ExclusionLedger `json:"exclusions"`
	ExcludedPlaceIDs []string                `json:"excluded_place_ids"`
	LastUpdated      string                  `json:"last_updated"`
	Count            int                     `json:"count"`
}

// LoadLatest returns the most recent snapshot under the store root.
// Dates sort lexically, so the greatest directory name is the latest.
func (s Store) LoadLatest(ctx context.Context) (catalog.Snapshot, error) {
	_, span := tracer.Start(ctx, "LoadLatest")
	defer span.End()

	dates, err := s.listDates()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return catalog.Snapshot{}, err
	}
	if len(dates) == 0 {
		return catalog.Snapshot{Exclusions: catalog.ExclusionLedger{}}, nil
	}
	date := dates[len(dates)-1]
	span.SetAttributes(attribute.String("date", date))

	snapshot, err := s.load(date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return catalog.Snapshot{}, err
	}
	return snapshot, nil
}

// LatestPublic returns the raw public catalog document for the most
// recent snapshot, ready to serve as-is.
func (s Store) LatestPublic(ctx context.Context) ([]byte, error) {
	_, span := tracer.Start(ctx, "LatestPublic")
	defer span.End()

	dates, err := s.listDates()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("no snapshots under %q", s.root)
	}
	date := dates[len(dates)-1]
	data, err := os.ReadFile(filepath.Join(s.root, catalogDir, date, publicFile))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("read public catalog %s: %w", date, err)
	}
	return data, nil
}

func (s Store) listDates() ([]string, error) {
	dirEntries, err := os.ReadDir(filepath.Join(s.root, catalogDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list snapshot dates: %w", err)
	}
	var dates []string
	for _, e := range dirEntries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse("2006-01-02", e.Name()); err != nil {
			continue
		}
		dates = append(dates, e.Name())
	}
	sort.Strings(dates)
	return dates, nil
}

func (s Store) load(date string) (catalog.Snapshot, error) {
	dir := filepath.Join(s.root, catalogDir, date)

	var entries []catalog.Entry
	data, err := os.ReadFile(filepath.Join(dir, snapshotFile))
	if err != nil {
		return catalog.Snapshot{}, fmt.Errorf("read snapshot %s: %w", date, err)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return catalog.Snapshot{}, fmt.Errorf("parse snapshot %s: %w", date, err)
	}
	for i := range entries {
		entries[i].Normalize()
	}

	exclusions, err := s.loadExclusions(dir)
	if err != nil {
		return catalog.Snapshot{}, fmt.Errorf("snapshot %s: %w", date, err)
	}

	return catalog.Snapshot{
		Date:       date,
		Entries:    entries,
		Exclusions: exclusions,
	}, nil
}

func (s Store) loadExclusions(dir string) (catalog.ExclusionLedger, error) {
	data, err := os.ReadFile(filepath.Join(dir, exclusionsFile))
	if os.IsNotExist(err) {
		return catalog.ExclusionLedger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read exclusions: %w", err)
	}

	var doc exclusionsDoc
	if err := json.Unmarshal(data, &doc); err == nil && doc.Exclusions != nil {
		return doc.Exclusions, nil
	}

	// older snapshots stored a bare list of place ids
	var legacy []string
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("parse exclusions: %w", err)
	}
	ledger := catalog.ExclusionLedger{}
	for _, placeID := range legacy {
		ledger[placeID] = catalog.ExclusionRecord{Reason: "inappropriate"}
	}
	return ledger, nil
}

// Save writes the snapshot and its derived artifacts into a staging
// directory, then renames it into place. A snapshot for the same date
// replaces the previous one. Readers never observe a half-written
// snapshot.
func (s Store) Save(ctx context.Context, snapshot catalog.Snapshot) (string, error) {
	_, span := tracer.Start(ctx, "Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("date", snapshot.Date),
		attribute.Int("entries", len(snapshot.Entries)),
		attribute.Int("exclusions", len(snapshot.Exclusions)),
	)

	dir, err := s.save(snapshot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return dir, nil
}

func (s Store) save(snapshot catalog.Snapshot) (string, error) {
	base := filepath.Join(s.root, catalogDir)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create store root: %w", err)
	}

	suffix, err := random.String(8)
	if err != nil {
		return "", fmt.Errorf("staging suffix: %w", err)
	}
	staging := filepath.Join(base, ".staging-"+suffix)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := s.writeArtifacts(staging, snapshot); err != nil {
		return "", err
	}

	final := filepath.Join(base, snapshot.Date)
	if err := os.RemoveAll(final); err != nil {
		return "", fmt.Errorf("replace snapshot %s: %w", snapshot.Date, err)
	}
	if err := os.Rename(staging, final); err != nil {
		return "", fmt.Errorf("publish snapshot %s: %w", snapshot.Date, err)
	}
	return final, nil
}

func (s Store) writeArtifacts(dir string, snapshot catalog.Snapshot) error {
	if err := writeJSON(filepath.Join(dir, snapshotFile), snapshot.Entries); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, exclusionsFile), newExclusionsDoc(snapshot.Exclusions)); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, publicFile), publicEntries(snapshot.Entries)); err != nil {
		return err
	}
	return writeArchive(filepath.Join(dir, archiveFile), snapshot.Entries)
}

func newExclusionsDoc(ledger catalog.ExclusionLedger) exclusionsDoc {
	placeIDs := make([]string, 0, len(ledger))
	for placeID := range ledger {
		placeIDs = append(placeIDs, placeID)
	}
	sort.Strings(placeIDs)
	return exclusionsDoc{
		Exclusions:       ledger,
		ExcludedPlaceIDs: placeIDs,
		LastUpdated:      timezone.Now().Format(time.RFC3339),
		Count:            len(ledger),
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeArchive bundles the full collection plus one file per entry so
// consumers can pull a single game's details without downloading the
// whole catalog.
func writeArchive(path string, entries []catalog.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	if err := writeArchiveFile(w, snapshotFile, entries); err != nil {
		return err
	}
	for _, entry := range entries {
		name := "entries/" + entry.PlaceID + ".json"
		if err := writeArchiveFile(w, name, entry); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func writeArchiveFile(w *zip.Writer, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal archive file %s: %w", name, err)
	}
	out, err := w.Create(name)
	if err != nil {
		return fmt.Errorf("create archive file %s: %w", name, err)
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("write archive file %s: %w", name, err)
	}
	return nil
}
