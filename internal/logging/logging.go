// Package logging is the process-wide logger. Kept deliberately small: a
// leveled printf facade over the standard logger with a global off switch
// for clean CLI output.
package logging

import (
	"log"
	"os"
)

var (
	disabled = false
	logger   = log.New(os.Stdout, "", log.LstdFlags)
)

// Disable turns off all logging.
func Disable() {
	disabled = true
}

// Enable turns logging back on.
func Enable() {
	disabled = false
}

// Infof logs a formatted info message.
func Infof(format string, v ...any) {
	if !disabled {
		logger.Printf("INFO "+format, v...)
	}
}

// Warnf logs a formatted warning message.
func Warnf(format string, v ...any) {
	if !disabled {
		logger.Printf("WARN "+format, v...)
	}
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...any) {
	if !disabled {
		logger.Printf("ERROR "+format, v...)
	}
}

// Debugf logs a formatted debug message.
func Debugf(format string, v ...any) {
	if !disabled {
		logger.Printf("DEBUG "+format, v...)
	}
}
