package gologger

import (
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey string

const ReqIDKey ctxKey = "reqID"

func init() {
	l := NewLogger()
	zerolog.DefaultContextLogger = &l
	zerolog.CallerMarshalFunc = shortCaller
}

// shortCaller renders file:line plus the function name without its import path
func shortCaller(pc uintptr, file string, line int) string {
	var fn string
	if f := runtime.FuncForPC(pc); f != nil {
		fn = f.Name()
		if slash := strings.LastIndex(fn, "/"); slash > 0 {
			fn = fn[slash+1:]
		}
		fn = " " + fn + "()"
	}
	return file + ":" + strconv.Itoa(line) + fn
}

// NewLogger returns a JSON logger on stdout
func NewLogger() zerolog.Logger {
	return NewLoggerTo(os.Stdout)
}

// NewLoggerTo returns a JSON logger on w with an RFC3339Nano "time" field and
// the caller of every event.
//
//	PRETTY=1      console output on stderr
//	DEBUG=1       global level debug
//	LOG_LEVEL=l   global level l (trace, debug, info, warn, error); DEBUG wins
func NewLoggerTo(w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "time"

	logger := zerolog.New(w).With().Timestamp().Logger().Hook(CallerHook{})
	if os.Getenv("PRETTY") == "1" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && os.Getenv("LOG_LEVEL") != "" {
		zerolog.SetGlobalLevel(lvl)
	}
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return logger
}

// CallerHook adds the caller of the logging call to every event
type CallerHook struct{}

func (h CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Caller(3)
}
