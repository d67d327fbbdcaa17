// Package logging provides structured logging for the toolkit
package logging

import (
	"time"

	"go.uber.org/zap"
)

// Logger wraps zap.Logger with toolkit-specific helpers
type Logger struct {
	*zap.Logger
}

// entity names the dataset in data quality events
const entity = "excavators"

// Config holds logging configuration
type Config struct {
	Level       string            `json:"level" yaml:"level"`
	Format      string            `json:"format" yaml:"format"` // "json" or "console"
	OutputPath  string            `json:"output_path" yaml:"output_path"`
	Fields      map[string]string `json:"fields" yaml:"fields"`
	Development bool              `json:"development" yaml:"development"`
}

// NewLogger creates a structured logger
func NewLogger(config Config) (*Logger, error) {
	var zapConfig zap.Config

	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(config.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if config.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	// stdout carries command output, logs always go elsewhere
	zapConfig.OutputPaths = []string{"stderr"}
	if config.OutputPath != "" {
		zapConfig.OutputPaths = []string{config.OutputPath}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	zapFields := make([]zap.Field, 0, len(config.Fields))
	for k, v := range config.Fields {
		zapFields = append(zapFields, zap.String(k, v))
	}

	return &Logger{Logger: logger.With(zapFields...)}, nil
}

// NewDefaultLogger creates a logger with sensible defaults
func NewDefaultLogger() *Logger {
	config := Config{
		Level:  "info",
		Format: "json",
		Fields: map[string]string{
			"service": "pindb",
		},
	}

	logger, err := NewLogger(config)
	if err != nil {
		zapLogger, _ := zap.NewProduction()
		return Wrap(zapLogger.With(zap.String("service", "pindb")))
	}

	return logger
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return Wrap(zap.NewNop())
}

// Wrap adapts an existing zap logger
func Wrap(l *zap.Logger) *Logger {
	return &Logger{Logger: l}
}

// WithSource tags entries with the dataset location being read
func (l *Logger) WithSource(location string) *Logger {
	return Wrap(l.Logger.With(zap.String("source", location)))
}

// WithExport tags entries with the export run
func (l *Logger) WithExport(exportID string, records int) *Logger {
	return Wrap(l.Logger.With(zap.String("export_id", exportID), zap.Int("records", records)))
}

// LogExportDuration records how long one export target took
func (l *Logger) LogExportDuration(target string, elapsed time.Duration, records int) {
	l.Info("Export timing",
		zap.String("format", target),
		zap.Duration("duration", elapsed),
		zap.Float64("records_per_second", rate(records, elapsed)),
		zap.String("type", "performance"),
	)
}

func rate(records int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(records) / elapsed.Seconds()
}

// LogDataQualityEvent logs one validation issue
func (l *Logger) LogDataQualityEvent(issue string) {
	l.Warn("Data quality issue",
		zap.String("entity", entity),
		zap.String("issue", issue),
		zap.String("type", "data_quality"),
	)
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}
