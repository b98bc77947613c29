// Package logging is the structured logging subsystem of weblog.
//
// A Service owns two rotating sinks on disk, one for general application
// records and one for per-request records, plus the console encoders and a
// fallback channel that reports failures of the logging subsystem itself.
// Every Logger handed out by a Service writes through exactly one transport:
// the shared general sink, or a caller-supplied TransportFunc. Silent mode
// hides console output of a custom transport without affecting delivery.
//
// Retired files are named by FilenameGenerator and compressed in the
// background with gzip or zstd.
//
// RequestCorrelation is the net/http middleware that tags each request with
// a correlation id and writes one record per request at a level chosen from
// the response status.
//
// Typical usage
//
//	svc := &logging.Service{WorkingDir: wd, Config: &cfg.Server.Log}
//	if err := svc.Initialize(); err != nil { return err }
//	defer svc.Close()
//
//	app := svc.Logger(logging.ChannelApp)
//	app.InfoWith().Int("port", port).Msg("Server started")
//	handler := logging.RequestCorrelation(svc.RequestLogger(false))(router)
package logging
