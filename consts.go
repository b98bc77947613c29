package logging

const (
	emptyString    = ""
	defaultChannel = "app"
	logExt         = ".log"

	// HeaderRequestID carries the correlation id in both directions.
	HeaderRequestID = "X-Request-Id"

	// StatusClientClosedRequest is recorded when the client goes away before
	// the handler wrote a status.
	StatusClientClosedRequest = 499
)

// Channel names created by the composition root.
const (
	ChannelApp        = "app"
	ChannelRequestLog = "request_log"
	ChannelCatchJSON  = "catch_json_middleware"
	ChannelRate       = "rate-limiter"
)

const (
	errMsgNilConfig       = "Logging config is nil."
	errMsgNilService      = "Logger service is nil."
	errMsgConfigInvalid   = "Logging configuration is invalid."
	errMsgWorkingDirEmpty = "Working directory is not set."
	errMsgSinkOpenFailed  = "Failed to open log sink."
	errMsgSinkClosed      = "Log sink is closed."

	warnMsgSilentNoCustom = "Silent mode is only valid for custom transports. Please use EnableCustomTransport() to use a custom transport."
)
