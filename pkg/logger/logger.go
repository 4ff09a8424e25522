package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

// Global logger instance
var GlobalLogger = New()

// Convenience functions
func Info(format string, v ...interface{}) {
	GlobalLogger.Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	GlobalLogger.Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	GlobalLogger.Debugf(format, v...)
}

func Fatal(format string, v ...interface{}) {
	GlobalLogger.Fatalf(format, v...)
}
