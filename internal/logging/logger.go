package logging

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// New creates the launcher's diagnostic logger. It writes to the given sink
// (normally stderr) so that it never mixes with the child's teed output.
func New(out io.Writer, level string) *log.Logger {
	logger := log.New()
	logger.SetOutput(out)
	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	logger.SetLevel(parsed)

	return logger
}
