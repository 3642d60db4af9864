package main

import (
	"context"

	"beanscout-backend/cmd/beanscout-cli/commands"
	"beanscout-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "beanscout-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
