// Package api hosts the webhook server that lets a Make.com scenario drive the
// pipeline. Notable routes:
//   - POST /webhook/trigger-scrape, /webhook/trigger-analysis,
//     /webhook/trigger-rewrite and /webhook/trigger-full-pipeline queue a run
//     and answer 202, or run inline with ?wait=true.
//   - GET /webhook/status reports the latest run state.
//   - GET /health for liveness probes and GET /metrics for Prometheus.
package api
