// Command salesreport queries a sales export from the command line: KPI
// tables, filtered previews, insight narratives and report exports.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
