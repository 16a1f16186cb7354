package log

import (
	"io"
	"os"
	"strings"
)

// Format is the log line encoding.
type Format int

const (
	// FormatText is logfmt-style key=value output.
	FormatText Format = iota
	// FormatJSON is one JSON object per line.
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	default:
		return "text"
	}
}

// ParseFormat parses a format name. Unknown names fall back to text, which is
// the readable choice for an interactive CLI.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}

// Output wraps the destination writer.
type Output struct {
	writer io.Writer
}

// Writer returns the underlying io.Writer.
func (o Output) Writer() io.Writer {
	if o.writer == nil {
		return os.Stderr
	}
	return o.writer
}

// NewOutput creates an Output from an io.Writer.
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// OutputStderr writes to stderr so command output on stdout stays pipeable.
func OutputStderr() Output {
	return Output{writer: os.Stderr}
}

// Config holds configuration for the logger.
type Config struct {
	Level  Level
	Format Format
	Output Output

	// AddSource includes file:line in each record.
	AddSource bool

	ServiceName    string
	ServiceVersion string
}

// DefaultConfig logs warnings and above as text on stderr. Routine progress
// is at info level and only shown when asked for.
func DefaultConfig() Config {
	return Config{
		Level:          LevelWarn,
		Format:         FormatText,
		Output:         OutputStderr(),
		ServiceName:    "ghgate",
		ServiceVersion: "dev",
	}
}

// DevelopmentConfig logs everything with source locations.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = LevelDebug
	cfg.AddSource = true
	return cfg
}
