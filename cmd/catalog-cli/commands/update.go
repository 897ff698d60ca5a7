package commands

import (
	"time"

	"gamevault-backend/cmd/catalog-cli/utils"
	"gamevault-backend/lib/configutil"
	"gamevault-backend/lib/scrapers/charts"
	"gamevault-backend/lib/serviceutil"
	"gamevault-backend/services/catalog"
	"gamevault-backend/services/catalog/store"
	"gamevault-backend/services/moderation"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Config struct {
	StoreRoot string            `json:"store_root"`
	MaxPages  int               `json:"max_pages"`
	Blacklist []string          `json:"blacklist"`
	AI        moderation.Config `json:"ai"`
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Runs one catalog update and prints the run summary.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		source := catalog.NewChartsSource(charts.NewClient(charts.Options{
			MaxPages:  cfg.MaxPages,
			Blacklist: cfg.Blacklist,
		}))
		service := catalog.NewService(
			source,
			store.New(cfg.StoreRoot),
			moderation.NewOracle(cfg.AI),
			source,
		)

		t1 := time.Now()
		result, err := service.Update(cmd.Context())
		if err != nil {
			serviceutil.Fatal("catalog update failed", err)
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"stat", "value"})
		t.AppendRows([]table.Row{
			{"date", result.Date},
			{"location", result.Location},
			{"candidates", result.Stats.Candidates},
			{"legacy", result.Stats.Legacy},
			{"entries", result.Stats.Entries},
			{"exclusions", result.Stats.Exclusions},
			{"new exclusions", result.Stats.NewExclusions},
			{"moderation calls", result.Stats.ModerationCalls},
			{"moderation reused", result.Stats.ModerationReused},
			{"duration", time.Since(t1).Round(time.Second)},
		})
		t.Render()
	},
}
