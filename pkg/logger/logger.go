package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fatih/color"
)

var (
	errorPrefix = color.New(color.FgRed, color.Bold).Sprint("[ERROR] ")
	warnPrefix  = color.New(color.FgYellow).Sprint("[WARN] ")
	infoPrefix  = color.New(color.FgGreen).Sprint("[INFO] ")
	debugPrefix = color.New(color.FgCyan).Sprint("[DEBUG] ")
)

var (
	mu      sync.Mutex
	logFile *os.File
)

// DebugEnabled can be set based on CLI flags
var DebugEnabled bool

// SetOutput tees all log output to the given file. A directory path gets an
// airlock.log inside it.
func SetOutput(path string) error {
	if path == "" {
		return nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "airlock.log")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return nil
}

// Close releases the log file opened by SetOutput.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		log.SetOutput(os.Stderr)
		_ = logFile.Close()
		logFile = nil
	}
}

// Printf wraps log.Printf to ensure all output goes through the logger
func Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

// Println wraps log.Println
func Println(v ...interface{}) {
	log.Println(v...)
}

// Fatalf wraps log.Fatalf
func Fatalf(format string, v ...interface{}) {
	log.Fatalf(format, v...)
}

// Errorf logs an error message
func Errorf(format string, v ...interface{}) {
	log.Printf(errorPrefix+format, v...)
}

// Warnf logs a warning message
func Warnf(format string, v ...interface{}) {
	log.Printf(warnPrefix+format, v...)
}

// Infof logs an info message
func Infof(format string, v ...interface{}) {
	log.Printf(infoPrefix+format, v...)
}

// Debugf logs a debug message regardless of DebugEnabled
func Debugf(format string, v ...interface{}) {
	log.Printf(debugPrefix+format, v...)
}

// DebugIfEnabled only logs if debugging is enabled
func DebugIfEnabled(format string, v ...interface{}) {
	if DebugEnabled {
		Debugf(format, v...)
	}
}
