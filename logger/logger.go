package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)
	WithField(key string, value interface{}) Logger
}

type NullLogger struct{}

func (NullLogger) Debug(msg string) {}
func (NullLogger) Info(msg string)  {}
func (NullLogger) Warn(msg string)  {}
func (NullLogger) Error(msg string) {}
func (NullLogger) Fatal(msg string) {}
func (NullLogger) WithField(key string, value interface{}) Logger {
	return NullLogger{}
}

func NewNullLogger() Logger {
	return NullLogger{}
}

// Options controls where InitLogger sends output.
type Options struct {
	// Dir holds conjure.log. Defaults to ~/.conjure.
	Dir string
	// Console tees human readable output to stderr.
	Console bool
	Level   string
}

var (
	log  Logger = NullLogger{}
	once sync.Once
)

// InitLogger initializes the logger
func InitLogger(opts Options) {
	once.Do(func() {
		dir := opts.Dir
		if dir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				panic("Failed to get user home directory: " + err.Error())
			}
			dir = filepath.Join(homeDir, ".conjure")
		}

		err := os.MkdirAll(dir, 0755)
		if err != nil {
			panic("Failed to create log directory: " + err.Error())
		}

		logFile, err := os.OpenFile(filepath.Join(dir, "conjure.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			panic("Failed to open log file: " + err.Error())
		}

		var out io.Writer = logFile
		if opts.Console {
			out = zerolog.MultiLevelWriter(logFile, zerolog.ConsoleWriter{Out: os.Stderr})
		}

		level, err := zerolog.ParseLevel(opts.Level)
		if err != nil || opts.Level == "" {
			level = zerolog.DebugLevel
		}

		zerologLogger := zerolog.New(out).Level(level).With().Timestamp().Logger()
		log = NewZerologAdapter(&zerologLogger)
	})
}

// GetLogger returns the logger instance
func GetLogger() Logger {
	return log
}

// ZerologAdapter adapts zerolog.Logger to our Logger interface
type ZerologAdapter struct {
	logger *zerolog.Logger
}

func NewZerologAdapter(l *zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: l}
}

func (z *ZerologAdapter) Debug(msg string) { z.logger.Debug().Msg(msg) }
func (z *ZerologAdapter) Info(msg string)  { z.logger.Info().Msg(msg) }
func (z *ZerologAdapter) Warn(msg string)  { z.logger.Warn().Msg(msg) }
func (z *ZerologAdapter) Error(msg string) { z.logger.Error().Msg(msg) }
func (z *ZerologAdapter) Fatal(msg string) { z.logger.Fatal().Msg(msg) }
func (z *ZerologAdapter) WithField(key string, value interface{}) Logger {
	newLogger := z.logger.With().Interface(key, value).Logger()
	return &ZerologAdapter{logger: &newLogger}
}
