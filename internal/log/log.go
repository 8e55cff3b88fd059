// Package log builds the logrus logger used by the responder daemon.
package log

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Defaults applied to empty Config fields.
const (
	DefaultPattern = "%time [%level] %field %msg"
	DefaultTime    = "2006-01-02 15:04:05.000"
)

// Output formats.
const (
	// FormatPattern renders entries with Config.Pattern.
	FormatPattern = "pattern"
	// FormatConsole renders entries in aligned columns for a terminal.
	FormatConsole = "console"
)

// Config configures a logger.
type Config struct {
	Level   string     `mapstructure:"level" yaml:"level"`
	Format  string     `mapstructure:"format" yaml:"format"`
	Pattern string     `mapstructure:"pattern" yaml:"pattern"`
	Time    string     `mapstructure:"time" yaml:"time"`
	File    FileConfig `mapstructure:"file" yaml:"file"`
}

// FileConfig configures the optional rotating log file.
type FileConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// New creates a logger writing to stdout and, if enabled, to a rotating file.
func New(cfg Config) (*logrus.Logger, error) {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg Config, stdout io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	pattern := cfg.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	layout := cfg.Time
	if layout == "" {
		layout = DefaultTime
	}

	var f logrus.Formatter
	switch cfg.Format {
	case "", FormatPattern:
		f = &formatter{pattern: pattern, time: layout}
	case FormatConsole:
		f = &prefixed.TextFormatter{
			DisableColors:   true,
			ForceFormatting: true,
			FullTimestamp:   true,
			TimestampFormat: layout,
		}
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	writers := []io.Writer{stdout}
	if cfg.File.Enabled {
		w, err := newFileWriter(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to create file output: %w", err)
		}
		writers = append(writers, w)
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(f)
	l.SetOutput(io.MultiWriter(writers...))
	return l, nil
}

// newFileWriter creates a lumberjack file writer for log rotation.
func newFileWriter(fc FileConfig) (io.Writer, error) {
	if fc.Path == "" {
		return nil, fmt.Errorf("file output requires 'path' field")
	}
	return &lumberjack.Logger{
		Filename:   fc.Path,
		MaxSize:    fc.MaxSizeMB,
		MaxBackups: fc.MaxBackups,
		MaxAge:     fc.MaxAgeDays,
		Compress:   fc.Compress,
	}, nil
}
