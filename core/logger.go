package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

type LoggerConfig struct {
	LogLevel            hclog.Level
	JSONLogFormat       bool
	OpenOrCreateNewFile bool
	LogsDirectory       string
	LogFile             string
	Name                string
}

func NewLogger(config LoggerConfig) (hclog.Logger, error) {
	var logFileWriter *os.File

	if config.LogFile != "" {
		fullFilePath, err := prepareLogFilePath(config)
		if err != nil {
			return nil, err
		}

		logFileWriter, err = os.OpenFile(fullFilePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
		if err != nil {
			return nil, fmt.Errorf("could not create or open log file, %w", err)
		}
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       config.Name,
		Level:      config.LogLevel,
		Output:     logFileWriter,
		JSONFormat: config.JSONLogFormat,
	}), nil
}

func prepareLogFilePath(config LoggerConfig) (string, error) {
	fullFilePath := config.LogFile

	if config.LogsDirectory != "" {
		if err := os.MkdirAll(config.LogsDirectory, os.ModePerm); err != nil {
			return "", fmt.Errorf("could not create logs directory, %w", err)
		}

		fullFilePath = filepath.Join(config.LogsDirectory, fullFilePath)
	}

	if !config.OpenOrCreateNewFile {
		timestamp := strings.NewReplacer(":", "_", "-", "_").Replace(time.Now().UTC().Format(time.RFC3339))
		fullFilePath = fullFilePath + "_" + timestamp
	}

	return fullFilePath + ".log", nil
}
