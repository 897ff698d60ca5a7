package commands

import (
	"sort"

	"gamevault-backend/cmd/catalog-cli/utils"
	"gamevault-backend/lib/configutil"
	"gamevault-backend/lib/serviceutil"
	"gamevault-backend/services/catalog/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(latestCmd)
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Summarizes the most recent catalog snapshot.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		snapshot, err := store.New(cfg.StoreRoot).LoadLatest(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to load latest snapshot", err)
		}

		byReason := map[string]int{}
		for _, record := range snapshot.Exclusions {
			byReason[record.Reason]++
		}
		reasons := make([]string, 0, len(byReason))
		for reason := range byReason {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)

		t := utils.NewTable()
		t.AppendHeader(table.Row{"stat", "value"})
		t.AppendRows([]table.Row{
			{"date", snapshot.Date},
			{"entries", len(snapshot.Entries)},
			{"exclusions", len(snapshot.Exclusions)},
		})
		for _, reason := range reasons {
			t.AppendRow(table.Row{"excluded: " + reason, byReason[reason]})
		}
		t.Render()
	},
}
