package logging

// Level is the severity of a record. Higher values are more severe.
type Level int8

const (
	SillyLevel Level = iota
	TraceLevel
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = [...]string{
	SillyLevel: "silly",
	TraceLevel: "trace",
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
	FatalLevel: "fatal",
}

func (l Level) String() string {
	if l < SillyLevel || l > FatalLevel {
		return "unknown"
	}
	return levelNames[l]
}

// LevelForStatus maps a final HTTP status code to the level its request
// record is written at: info below 400, warn for client errors, error from
// 500 upwards. Values under 200 (including zero and negatives) log at info.
func LevelForStatus(status int) Level {
	switch {
	case status >= 200 && status < 400:
		return InfoLevel
	case status >= 400 && status < 500:
		return WarnLevel
	case status >= 500:
		return ErrorLevel
	}
	return InfoLevel
}
