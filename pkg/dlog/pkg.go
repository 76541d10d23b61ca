package dlog

import (
	"os"

	"github.com/apex/log"
)

var handler = NewHandler(os.Stdout)

// Setup installs the portal handler on the default apex logger and sets the
// level from a string such as "info" or "debug". Unparseable levels fall back
// to info.
func Setup(levelStr string) {
	log.SetHandler(handler)

	level, err := log.ParseLevel(levelStr)
	if err != nil {
		level = log.InfoLevel
	}

	log.SetLevel(level)
}

// SetOutputToFile redirects logging to the named file, appending if it
// already exists. Used when the daemon runs detached from a terminal.
func SetOutputToFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	handler.SetOutput(f)

	return nil
}
