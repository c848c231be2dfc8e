package thpool

import (
	"fmt"
	"log"
	"os"
)

// Logger is the leveled sink the pool logs through.
// The host resolves the implementation; the default writes through the
// standard log package with per-level prefixes.
type Logger interface {
	// Debugf logs queue and dispatch tracing.
	Debugf(format string, args ...interface{})

	// Infof logs lifecycle milestones.
	Infof(format string, args ...interface{})

	// Warnf logs recoverable misuse, such as Destroy on a pool that was
	// never shut down.
	Warnf(format string, args ...interface{})

	// Errorf logs rejected operations.
	Errorf(format string, args ...interface{})

	// Fatalf logs an unrecoverable invariant violation and terminates
	// the process. Implementations must not return.
	Fatalf(format string, args ...interface{})
}

// defaultLogger implements Logger using Go's standard log package.
// Can be swapped per pool with WithLogger.
type defaultLogger struct {
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	fatalLogger *log.Logger
}

// NewDefaultLogger creates the default logger implementation.
func NewDefaultLogger() Logger {
	return &defaultLogger{
		debugLogger: log.New(os.Stdout, "[DEBUG] ", log.LstdFlags),
		infoLogger:  log.New(os.Stdout, "[INFO] ", log.LstdFlags),
		warnLogger:  log.New(os.Stderr, "[WARN] ", log.LstdFlags),
		errorLogger: log.New(os.Stderr, "[ERROR] ", log.LstdFlags),
		fatalLogger: log.New(os.Stderr, "[FATAL] ", log.LstdFlags),
	}
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	l.debugLogger.Output(2, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.infoLogger.Output(2, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.warnLogger.Output(2, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	l.errorLogger.Output(2, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Fatalf(format string, args ...interface{}) {
	l.fatalLogger.Output(2, fmt.Sprintf(format, args...))
	os.Exit(1)
}
