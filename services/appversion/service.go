// Package appversion tracks the client bundle version currently
// published for each deployment stage.
package appversion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gamevault-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/appversion")

// DefaultVersion is reported for a stage that has never been set.
const DefaultVersion = "0.0.0"

type Service struct {
	db *sql.DB
}

func NewService(database *sql.DB) Service {
	return Service{db: database}
}

func (s Service) Current(ctx context.Context, stage string) (string, error) {
	ctx, span := tracer.Start(ctx, "Current")
	defer span.End()
	span.SetAttributes(attribute.String("stage", stage))

	var version string
	err := s.db.QueryRowContext(
		ctx,
		"select version from app_version where stage = ?",
		stage,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultVersion, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return version, nil
}

func (s Service) Set(ctx context.Context, stage, version string) error {
	ctx, span := tracer.Start(ctx, "Set")
	defer span.End()
	span.SetAttributes(
		attribute.String("stage", stage),
		attribute.String("version", version),
	)

	_, err := s.db.ExecContext(
		ctx,
		`insert into app_version (stage, version, updated_at) values (?, ?, ?)
			on conflict (stage) do update set version = excluded.version, updated_at = excluded.updated_at`,
		stage, version, timezone.Now().Unix(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Compare orders two dotted version strings numerically, part by
// part. Missing parts count as zero. It returns -1, 0, or 1.
func Compare(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var an, bn int
		if i < len(as) {
			an, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bn, _ = strconv.Atoi(bs[i])
		}
		if an < bn {
			return -1
		}
		if an > bn {
			return 1
		}
	}
	return 0
}

// Archived reports whether a bundle for the given version already sits
// under the archive directory, so a fetch for that version can be
// skipped.
func Archived(dir, version string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read archive dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".apk" && ext != ".xapk" {
			continue
		}
		if strings.Contains(name, version) {
			return true, nil
		}
	}
	return false, nil
}
