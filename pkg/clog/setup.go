// Package clog configures the process wide apex/log logger.
package clog

import (
	"fmt"
	"io"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Setup installs the handler for format (text or json) writing to w and sets
// the log level. An empty format or level keeps the defaults of text and info.
func Setup(w io.Writer, format, level string) error {
	handler, err := handlerFor(w, format)
	if err != nil {
		return err
	}

	lvl := log.InfoLevel
	if level != "" {
		if lvl, err = log.ParseLevel(strings.ToLower(level)); err != nil {
			return err
		}
	}

	log.SetHandler(handler)
	log.SetLevel(lvl)

	return nil
}

func handlerFor(w io.Writer, format string) (log.Handler, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return NewHandler(w), nil
	case FormatJSON:
		return json.New(w), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
