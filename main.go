// Command creative-intel runs the competitor ad intelligence pipeline.
//
// Architecture overview:
//   - CLI: cobra commands (full, scrape, transcribe, analyze, rewrite, export)
//     load configuration through viper, build services in internal/app and run
//     a single request through the pipeline engine.
//   - Server: the server command exposes the webhook API (internal/api). Trigger
//     requests are queued on a bounded in-memory queue and executed by a fixed
//     worker pool; an optional cron schedule submits full runs.
//   - Pipeline: Atria scrape (chromedp) -> media download (colly) ->
//     AssemblyAI transcription -> Claude analysis -> brand-aligned rewrite ->
//     storage fan-out (Sheets, Drive/GCS/local media, Postgres, SQLite). Item
//     failures are recorded on the record and never stop the batch.
//   - Notifications: Make.com scenario webhooks with an optional Pub/Sub mirror.
//   - Observability: zap logs carry run and ad ids; Prometheus metrics are
//     served on /metrics; the latest run state lives in memory or Redis.
package main

import "github.com/JakeFAU/creative-intel/cmd"

func main() {
	cmd.Execute()
}
