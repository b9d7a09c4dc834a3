package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"hiroba-client/cmd/hiroba-cli/commands"
	"hiroba-client/lib/osutil"
	"hiroba-client/lib/telemetry"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())

	otel, err := telemetry.SetupFromEnv(ctx, "hiroba-cli")
	if err == nil {
		telemetry.InstrumentPerfStats(ctx, telemetry.SlogAPI{}, time.Second*15)
	} else if !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to setup telemetry", "err", err)
	}

	code := commands.ExecuteContext(ctx)
	cancel()
	otel.Shutdown(context.Background())
	os.Exit(code)
}
