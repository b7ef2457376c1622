package logx

import (
	"os"
	"strings"
)

var defaultLogger = New()

func init() {
	_ = Configure(OptionsFromEnv())
}

// Options tune a logger from plain strings. Empty fields leave the current
// setting alone.
type Options struct {
	Level  string // trace, debug, info, warn, error, off
	Format string // console or json
	Color  string // "false" disables level colors
	Caller string // "false" hides file:line
}

// OptionsFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_COLOR and LOG_CALLER
func OptionsFromEnv() Options {
	return Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
		Color:  os.Getenv("LOG_COLOR"),
		Caller: os.Getenv("LOG_CALLER"),
	}
}

// Configure applies opts. An unknown level is returned as an error after the
// other fields have been applied.
func (l *Logger) Configure(opts Options) error {
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "":
	case "json":
		l.SetFormat(FormatJSON)
	default:
		l.SetFormat(FormatConsole)
	}
	if opts.Color != "" {
		l.SetColored(!strings.EqualFold(opts.Color, "false"))
	}
	if opts.Caller != "" {
		l.SetShowCaller(!strings.EqualFold(opts.Caller, "false"))
	}
	if opts.Level == "" {
		return nil
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}
	l.SetLevel(level)
	return nil
}

// Configure applies opts to the process-wide logger
func Configure(opts Options) error { return defaultLogger.Configure(opts) }

func Trace(msg string, args ...any) { defaultLogger.Trace(msg, args...) }
func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...any)  { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...any)  { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }
func Fatal(msg string, args ...any) { defaultLogger.Fatal(msg, args...) }
