package utils

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

var Log = logrus.New()

// ParseLogLevel maps a --loglevel string to a logrus level.
// We are not using logrus' trace and panic levels
func ParseLogLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "warning", "warn":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	case "fatal":
		return log.FatalLevel, nil
	}
	return log.InfoLevel, fmt.Errorf("bad log level string: %q", level)
}

func SetLogLevel(level string) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		log.Fatal(err)
	}
	Log.SetLevel(lvl)
}

// ReportPath derives a sibling report file name from the export file name,
// e.g. export.csv -> export-failed.csv.
func ReportPath(exportFile, suffix string) string {
	if strings.HasSuffix(exportFile, ".csv") {
		return strings.TrimSuffix(exportFile, ".csv") + suffix
	}
	return exportFile + suffix
}
