package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[37m"
)

// sink общий для логгера и всех производных от него
type sink struct {
	mu     sync.Mutex
	writer io.Writer
}

type ConsoleLogger struct {
	defaultFields out.LogFields
	module        string
	location      *time.Location
	minLevel      out.LogLevel
	colored       bool
	sink          *sink
}

type Option func(*ConsoleLogger)

// WithWriter направляет вывод в writer вместо stdout, цвета при этом отключаются
func WithWriter(writer io.Writer) Option {
	return func(l *ConsoleLogger) {
		l.sink = &sink{writer: writer}
		l.colored = false
	}
}

func WithMinLevel(level out.LogLevel) Option {
	return func(l *ConsoleLogger) {
		l.minLevel = level
	}
}

func NewConsoleLogger(timezone string, opts ...Option) (*ConsoleLogger, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	l := &ConsoleLogger{
		defaultFields: make(out.LogFields),
		location:      loc,
		minLevel:      out.LogLevelDebug,
		colored:       true,
		sink:          &sink{writer: os.Stdout},
	}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

func (l *ConsoleLogger) clone() *ConsoleLogger {
	return &ConsoleLogger{
		defaultFields: l.defaultFields,
		module:        l.module,
		location:      l.location,
		minLevel:      l.minLevel,
		colored:       l.colored,
		sink:          l.sink,
	}
}

func (l *ConsoleLogger) WithFields(fields out.LogFields) out.LoggerPort {
	newLogger := l.clone()
	newLogger.defaultFields = make(out.LogFields, len(l.defaultFields)+len(fields))

	// Копируем существующие поля
	for k, v := range l.defaultFields {
		newLogger.defaultFields[k] = v
	}

	// Добавляем новые поля
	for k, v := range fields {
		newLogger.defaultFields[k] = v
	}

	return newLogger
}

func (l *ConsoleLogger) WithModule(module string) out.LoggerPort {
	newLogger := l.clone()
	newLogger.module = module
	return newLogger
}

func (l *ConsoleLogger) Debug(event string, fields out.LogFields) {
	l.log(out.LogLevelDebug, event, fields)
}

func (l *ConsoleLogger) Info(event string, fields out.LogFields) {
	l.log(out.LogLevelInfo, event, fields)
}

func (l *ConsoleLogger) Warn(event string, fields out.LogFields) {
	l.log(out.LogLevelWarn, event, fields)
}

func (l *ConsoleLogger) Error(event string, fields out.LogFields) {
	l.log(out.LogLevelError, event, fields)
}

func (l *ConsoleLogger) log(level out.LogLevel, event string, fields out.LogFields) {
	if !level.Enabled(l.minLevel) {
		return
	}

	module := l.module
	if module == "" {
		module = "unknown"
	}

	// Объединяем поля
	mergedFields := make(out.LogFields, len(l.defaultFields)+len(fields)+1)
	for k, v := range l.defaultFields {
		mergedFields[k] = v
	}
	for k, v := range fields {
		mergedFields[k] = v
	}

	// Добавляем event в поля
	mergedFields["event"] = event

	// Используем таймзону для форматирования времени
	timestamp := time.Now().In(l.location).Format("2006-01-02 15:04:05.000")

	// Форматируем поля
	fieldsBytes, err := json.MarshalIndent(mergedFields, "", "  ")
	if err != nil {
		fieldsBytes = []byte(fmt.Sprintf(`{"event": %q, "marshalError": %q}`, event, err.Error()))
	}

	var logLine string
	if l.colored {
		logLine = fmt.Sprintf("%s[%s]%s %s[%s]%s %s[%s]%s\n%s\n",
			colorGray, timestamp, colorReset,
			levelColor(level), level, colorReset,
			colorCyan, module, colorReset,
			string(fieldsBytes),
		)
	} else {
		logLine = fmt.Sprintf("[%s] [%s] [%s]\n%s\n", timestamp, level, module, string(fieldsBytes))
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	fmt.Fprintln(l.sink.writer, logLine)
}

func levelColor(level out.LogLevel) string {
	switch level {
	case out.LogLevelDebug:
		return colorGray
	case out.LogLevelInfo:
		return colorGreen
	case out.LogLevelWarn:
		return colorYellow
	case out.LogLevelError:
		return colorRed
	}
	return colorReset
}
