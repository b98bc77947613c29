package logging

import (
	"fmt"
	"time"
)

// FilenameGenerator names the files of one channel. The live file is
// "{channel}.log"; a retired file is "{YYYYMMDD}-{HHMMSS}-{NN}-{channel}.log"
// where NN is the zero-padded disambiguation index. Indexes of 100 and above
// widen the field rather than wrapping.
type FilenameGenerator struct {
	channel string
}

func NewFilenameGenerator(channel string) FilenameGenerator {
	if channel == emptyString {
		channel = defaultChannel
	}
	return FilenameGenerator{channel: channel}
}

// Live returns the name of the currently active file.
func (g FilenameGenerator) Live() string {
	return g.channel + logExt
}

// Generate returns the live name for a zero time and the rotated name for
// any other instant. It is pure: the result depends only on t (including its
// location) and index.
func (g FilenameGenerator) Generate(t time.Time, index int) string {
	if t.IsZero() {
		return g.Live()
	}
	return fmt.Sprintf("%s-%02d-%s%s", t.Format("20060102-150405"), index, g.channel, logExt)
}
