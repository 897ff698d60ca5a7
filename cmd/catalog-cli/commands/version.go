package commands

import (
	"fmt"
	"log/slog"

	"gamevault-backend/lib/scrapers/apkportal"
	"gamevault-backend/lib/serviceutil"
	"gamevault-backend/lib/sqliteutil"
	"gamevault-backend/services/appversion"
	"gamevault-backend/services/appversion/db"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var (
	versionDb    *string
	versionStage *string
	archiveDir   *string
)

func init() {
	versionDb = checkVersionCmd.Flags().String("db", "appversion.db", "The version parameter database.")
	versionStage = checkVersionCmd.Flags().String("stage", "prod", "The deployment stage to check.")
	archiveDir = checkVersionCmd.Flags().String("archive", "downloads", "The local bundle archive directory.")
	rootCmd.AddCommand(checkVersionCmd)
}

var checkVersionCmd = &cobra.Command{
	Use:   "check-version [--db <path>] [--stage <stage>] [--archive <dir>]",
	Short: "Checks the portal for a new client version and records it.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		portal := apkportal.NewClient(apkportal.Options{})
		version, err := portal.LatestVersion(ctx)
		if err != nil {
			serviceutil.Fatal("failed to check portal version", err)
		}
		if !apkportal.ValidVersion(version) {
			serviceutil.Fatal(
				"portal version has unexpected format",
				fmt.Errorf("got %q, want 2.x.x", version),
			)
		}
		slog.Info("portal version", "version", version)

		database, err := sqliteutil.OpenDB(db.Schema, *versionDb)
		if err != nil {
			serviceutil.Fatal("failed to open version database", err)
		}
		defer database.Close()

		versions := appversion.NewService(database)
		current, err := versions.Current(ctx, *versionStage)
		if err != nil {
			serviceutil.Fatal("failed to read stored version", err)
		}

		if appversion.Compare(version, current) <= 0 {
			slog.Info("already up to date", "stage", *versionStage, "version", current)
			return
		}

		archived, err := appversion.Archived(*archiveDir, version)
		if err != nil {
			serviceutil.Fatal("failed to check bundle archive", err)
		}
		if archived {
			slog.Info("bundle already archived, recording version only", "version", version)
		} else {
			slog.Info("new version available", "stage", *versionStage, "current", current, "new", version)
		}

		if err := versions.Set(ctx, *versionStage, version); err != nil {
			serviceutil.Fatal("failed to record version", err)
		}
	},
}
