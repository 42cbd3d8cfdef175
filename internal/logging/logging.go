// Package logging builds the component loggers used across mnemosync.
//
// Every component logs through a stdlib *log.Logger with its own prefix
// ("[sync] ", "[store] ", ...). When a log file is configured, output is
// teed into it with size-based rotation.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for the log file.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// Options configures Setup.
type Options struct {
	// File is the log file path. Empty disables file logging.
	File string
	// Console defaults to os.Stderr.
	Console io.Writer
}

// Factory hands out prefixed loggers that share one destination.
type Factory struct {
	out  io.Writer
	file *lumberjack.Logger
}

// Setup creates a Factory. Call Close when done to release the log file.
func Setup(opts Options) *Factory {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	f := &Factory{out: console}
	if opts.File != "" {
		f.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
			MaxAge:     DefaultMaxAgeDays,
			Compress:   true,
		}
		f.out = io.MultiWriter(console, f.file)
	}
	return f
}

// Logger returns a logger for component, e.g. Logger("sync") logs "[sync] ...".
func (f *Factory) Logger(component string) *log.Logger {
	return log.New(f.out, "["+component+"] ", log.LstdFlags)
}

// Audit returns w teed into the log file, or w itself when no log file is
// configured. The audit trace goes through it so --log-file keeps a record
// of every insert and update.
func (f *Factory) Audit(w io.Writer) io.Writer {
	if f.file == nil {
		return w
	}
	return io.MultiWriter(w, f.file)
}

// Close closes the log file, if any.
func (f *Factory) Close() error {
	if f.file == nil {
		return nil
	}
	return f.file.Close()
}
