// Command jma-etl loads the JMA area hierarchy and aggregates tomorrow's
// forecasts and warnings per sub-region into a relational or column store.
//
// Usage:
//
//	jma-etl master            # rebuild regions, prefectures, sub-regions, cities, stations
//	jma-etl forecast          # aggregate forecasts for the configured prefectures
//	jma-etl forecast --date 2024-05-11
//	jma-etl warning           # collect whitelisted warnings
//	jma-etl run               # master, then forecast and warning
//	jma-etl serve             # scheduler plus HTTP API
//	jma-etl check             # integrity report over the stored tables
//	jma-etl export --format parquet --output out.parquet
//
// Settings come from environment variables; see internal/config.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
