package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes one JSON object per event with the service name, the action
// and the host, plus whatever fields the caller passes.
type Logger struct {
	service string
	zl      zerolog.Logger
}

func New(service string) *Logger { return NewWithWriter(service, os.Stdout) }

func NewWithWriter(service string, w io.Writer) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zl := zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Str("hostname", hostname()).
		Logger()
	return &Logger{service: service, zl: zl}
}

// WithRequestID returns a child logger that tags every entry with id.
func (l *Logger) WithRequestID(id string) *Logger {
	return &Logger{service: l.service, zl: l.zl.With().Str("request_id", id).Logger()}
}

// SetLevel accepts zerolog level names; unknown names keep the current level.
func (l *Logger) SetLevel(level string) {
	if lv, err := zerolog.ParseLevel(level); err == nil && level != "" {
		l.zl = l.zl.Level(lv)
	}
}

func (l *Logger) log(ev *zerolog.Event, action string, fields map[string]any, err error) {
	if err != nil {
		ev = ev.Dict("error", zerolog.Dict().Str("msg", err.Error()).Str("type", typeName(err)))
	}
	ev.Str("action", action).Fields(fields).Msg(action)
}

func (l *Logger) Info(action string, fields map[string]any)  { l.log(l.zl.Info(), action, fields, nil) }
func (l *Logger) Debug(action string, fields map[string]any) { l.log(l.zl.Debug(), action, fields, nil) }
func (l *Logger) Warn(action string, fields map[string]any)  { l.log(l.zl.Warn(), action, fields, nil) }
func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.log(l.zl.Error(), action, fields, err)
}

func hostname() string { h, _ := os.Hostname(); return h }

func typeName(err error) string { return fmt.Sprintf("%T", err) }
