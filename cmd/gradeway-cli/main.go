package main

import (
	"context"

	"gradeway-backend/cmd/gradeway-cli/commands"
	"gradeway-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "gradeway-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
