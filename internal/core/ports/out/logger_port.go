package out

import "strings"

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

var logLevelWeights = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
}

// ParseLogLevel приводит строку из конфига к уровню, по умолчанию INFO
func ParseLogLevel(level string) LogLevel {
	parsed := LogLevel(strings.ToUpper(strings.TrimSpace(level)))
	if _, ok := logLevelWeights[parsed]; !ok {
		return LogLevelInfo
	}
	return parsed
}

// Enabled сообщает, проходит ли уровень l через порог min
func (l LogLevel) Enabled(min LogLevel) bool {
	return logLevelWeights[l] >= logLevelWeights[min]
}

type LogFields map[string]interface{}

type LoggerPort interface {
	Debug(event string, fields LogFields)
	Info(event string, fields LogFields)
	Warn(event string, fields LogFields)
	Error(event string, fields LogFields)
	WithFields(fields LogFields) LoggerPort
	WithModule(module string) LoggerPort
}
