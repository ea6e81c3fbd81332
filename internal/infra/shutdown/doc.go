// Package shutdown coordinates process termination for medpanel-cli.
//
// Signals (SIGINT, SIGTERM) cancel the command context; registered hooks
// (closing the credential store, stopping the config watcher) then run in
// reverse order under a timeout.
//
// Usage:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	ctx, stop := h.WithSignals(context.Background())
//	defer stop()
//	h.OnShutdown(func(ctx context.Context) error { return kv.Close() })
//	defer h.Shutdown()
package shutdown
