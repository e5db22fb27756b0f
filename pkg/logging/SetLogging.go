// Package logging with logging configuration functions used by all packages
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// SetLogging sets the logging level and output file for this application
// Intended to standardize logging between the viewer and its components.
//  levelName is the requested logging level: error, warning, info, debug
//  filename is the output log file full name including path, use "" for stderr
func SetLogging(levelName string, filename string) error {
	loggingLevel := logrus.DebugLevel
	var err error

	if levelName != "" {
		switch strings.ToLower(levelName) {
		case "error":
			loggingLevel = logrus.ErrorLevel
		case "warn", "warning":
			loggingLevel = logrus.WarnLevel
		case "info":
			loggingLevel = logrus.InfoLevel
		case "debug":
			loggingLevel = logrus.DebugLevel
		}
	}
	var logOut io.Writer = os.Stdout
	if filename != "" {
		logFileHandle, err2 := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
		if err2 != nil {
			err = fmt.Errorf("SetLogging: Unable to open logfile: %s", err2)
		} else {
			logrus.Warnf("SetLogging: Send '%s' logging to '%s'", levelName, filename)
			logOut = io.MultiWriter(logOut, logFileHandle)
		}
	}

	logrus.SetFormatter(
		&logrus.TextFormatter{
			ForceColors:     true,
			PadLevelText:    true,
			TimestampFormat: "2006-01-02T15:04:05.000-0700",
			FullTimestamp:   true,
		})
	logrus.SetOutput(logOut)
	logrus.SetLevel(loggingLevel)
	logrus.SetReportCaller(false)

	return err
}
