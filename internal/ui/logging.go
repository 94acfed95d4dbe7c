// Package ui holds the CLI-facing pieces: leveled logging, progress bars and
// run statistics.
package ui

import (
	"fmt"
	"os"
)

// Logger is a minimal leveled printf logger. Debug output is gated, errors go
// to stderr so they survive progress-bar redraws.
type Logger struct {
	Debug bool
}

func NewLogger(debug bool) *Logger {
	return &Logger{Debug: debug}
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.Debug {
		fmt.Printf("[DEBUG] "+format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	fmt.Printf("[INFO] "+format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	fmt.Printf("[WARN] "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+format, args...)
}
