package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"gamevault-backend/lib/configutil"
	"gamevault-backend/lib/scrapers/charts"
	"gamevault-backend/lib/serviceutil"
	"gamevault-backend/lib/telemetry"
	"gamevault-backend/services/catalog"
	"gamevault-backend/services/catalog/store"
	"gamevault-backend/services/moderation"
)

type Config struct {
	Port      int               `json:"port"`
	StoreRoot string            `json:"store_root"`
	MaxPages  int               `json:"max_pages"`
	Blacklist []string          `json:"blacklist"`
	AI        moderation.Config `json:"ai"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8445
	}

	t, err := telemetry.SetupFromEnv(ctx, "catalogd")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	snapshots := store.New(config.StoreRoot)
	source := catalog.NewChartsSource(charts.NewClient(charts.Options{
		MaxPages:  config.MaxPages,
		Blacklist: config.Blacklist,
	}))
	service := catalog.NewService(
		source,
		snapshots,
		moderation.NewOracle(config.AI),
		source,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/gameservers.json", func(w http.ResponseWriter, r *http.Request) {
		data, err := snapshots.LatestPublic(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to read public catalog", "err", err)
			http.Error(w, "no catalog available", http.StatusNotFound)
			return
		}
		w.Header().Set("content-type", "application/json")
		w.Write(data)
	})
	go serviceutil.StartHttpServer(config.Port, mux)

	go runDaily(ctx, service)

	<-ctx.Done()
}

func runDaily(ctx context.Context, service catalog.Service) {
	run := func() {
		result, err := service.Update(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "catalog update failed", "err", err)
			return
		}
		slog.InfoContext(ctx, "published catalog snapshot",
			"date", result.Date,
			"location", result.Location,
		)
	}

	run()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
