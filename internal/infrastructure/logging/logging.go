package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Config selects the log level and the optional rotating file sink.
type Config struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Init installs the process-wide slog default. Lines go to stderr so
// stdout stays free for audit output, mirrored into a rotating file
// when cfg.File is set.
func Init(cfg Config) (*RotatingWriter, error) {
	sink, rotating, err := buildSink(cfg)
	if err != nil {
		return nil, err
	}

	level := parseLevel(cfg.Level)
	handler := slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	// The stdlib log package (http.Server error lines) goes through
	// the same handler.
	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(handler, level).Writer())

	return rotating, nil
}

func buildSink(cfg Config) (io.Writer, *RotatingWriter, error) {
	if strings.TrimSpace(cfg.File) == "" {
		return os.Stderr, nil, nil
	}
	rotating, err := NewRotatingWriter(cfg.File, cfg.MaxSizeMB, cfg.MaxBackups)
	if err != nil {
		return nil, nil, err
	}
	return io.MultiWriter(os.Stderr, rotating), rotating, nil
}

func parseLevel(raw string) slog.Level {
	if level, ok := levelNames[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return level
	}
	return slog.LevelInfo
}
