package logger

import "go.uber.org/zap"

var log = zap.NewNop()

// Init replaces the package logger. Call once at startup; the default is a
// no-op logger so library users opt in to store-layer logging.
func Init(l *zap.Logger) {
	log = l
}

func Debug(msg string, fields ...zap.Field) {
	log.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
}
