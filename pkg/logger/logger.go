package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Leveled logging facade used across the service, backed by zerolog.
// Provides Debug/Info/Warn/Error/Fatal variants and Init(level).

var (
	mu  sync.RWMutex
	log = zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		log = log.Level(zerolog.DebugLevel)
	case "warn", "warning":
		log = log.Level(zerolog.WarnLevel)
	case "error":
		log = log.Level(zerolog.ErrorLevel)
	case "fatal":
		log = log.Level(zerolog.FatalLevel)
	default:
		log = log.Level(zerolog.InfoLevel)
	}
}

// SetOutput redirects log output (tests capture it through a buffer).
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = log.Output(w)
}

func get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debugf(format string, v ...interface{}) { l := get(); l.Debug().Msgf(format, v...) }

func Infof(format string, v ...interface{}) { l := get(); l.Info().Msgf(format, v...) }

func Warnf(format string, v ...interface{}) { l := get(); l.Warn().Msgf(format, v...) }

func Errorf(format string, v ...interface{}) { l := get(); l.Error().Msgf(format, v...) }

func Fatalf(format string, v ...interface{}) { l := get(); l.Fatal().Msgf(format, v...) }

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	l := get()
	l.Info().Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	switch get().GetLevel() {
	case zerolog.DebugLevel:
		return "debug"
	case zerolog.WarnLevel:
		return "warn"
	case zerolog.ErrorLevel:
		return "error"
	case zerolog.FatalLevel:
		return "fatal"
	}
	return "info"
}
