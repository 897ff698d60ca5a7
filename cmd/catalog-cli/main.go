package main

import (
	"context"

	"gamevault-backend/cmd/catalog-cli/commands"
	"gamevault-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "catalog-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
