// Package toolkit wires storage, codecs, validation and exporters into the
// operations exposed by the pindb command.
package toolkit

import (
	"context"
	"fmt"
	"time"

	"github.com/data-power-io/excavator-pins/internal/config"
	"github.com/data-power-io/excavator-pins/internal/formats"
	"github.com/data-power-io/excavator-pins/internal/logging"
	"github.com/data-power-io/excavator-pins/internal/metrics"
	"github.com/data-power-io/excavator-pins/internal/pins"
	"github.com/data-power-io/excavator-pins/internal/schema"
	"github.com/data-power-io/excavator-pins/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultDatasetVersion = "2024.1"
	DefaultOutputDir      = "./output"
	// ImperialPrecision is the number of decimals of derived inch values
	ImperialPrecision = 3
)

type Service struct {
	config  *config.Config
	logger  *logging.Logger
	metrics *metrics.Recorder
	store   *storage.Store

	now   func() time.Time
	newID func() string
}

func NewService(cfg *config.Config, logger *logging.Logger) *Service {
	return &Service{
		config:  cfg,
		logger:  logger,
		metrics: metrics.NewRecorder(),
		store:   storage.NewStore(cfg.GetS3Config(), logger.Logger),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Rules returns the validation rules from the configuration
func (s *Service) Rules() pins.Rules {
	defaults := pins.DefaultRules()
	return pins.Rules{
		ExpectedRecords:       s.config.GetInt(config.KeyExpectedRecords, defaults.ExpectedRecords),
		ExpectedManufacturers: s.config.GetInt(config.KeyExpectedManufacturer, defaults.ExpectedManufacturers),
		UnitTolerance:         s.config.GetFloat(config.KeyUnitTolerance, defaults.UnitTolerance),
		QualityThreshold:      s.config.GetFloat(config.KeyQualityThreshold, defaults.QualityThreshold),
	}
}

// Load reads the catalog at a local path or s3:// location
func (s *Service) Load(ctx context.Context, location string) (*pins.Catalog, error) {
	loc, err := storage.ParseLocation(location)
	if err != nil {
		return nil, err
	}

	format, err := formats.DetectFormat(loc.Name())
	if err != nil {
		return nil, err
	}

	timer := metrics.NewTimer()
	rc, err := s.store.Open(ctx, loc)
	if err != nil {
		s.metrics.RecordError("load")
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	defer rc.Close()

	catalog, err := formats.Decode(format, rc, s.logger.WithSource(loc.String()).Logger)
	if err != nil {
		s.metrics.RecordError("decode")
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	catalog.Source = loc.String()

	s.metrics.RecordLoad(string(format), catalog.Len(), len(catalog.Issues))
	s.logger.Info("Loaded dataset",
		zap.String("source", catalog.Source),
		zap.String("format", catalog.Format),
		zap.Int("records", catalog.Len()),
		zap.Int("parse_issues", len(catalog.Issues)),
		zap.Duration("duration", timer.Duration()),
	)

	return catalog, nil
}

// Check verifies that the dataset location is reachable
func (s *Service) Check(ctx context.Context, location string) error {
	loc, err := storage.ParseLocation(location)
	if err != nil {
		return err
	}

	if err := s.store.Check(ctx, loc); err != nil {
		s.metrics.RecordError("check")
		return err
	}

	s.logger.Info("Dataset location check successful", zap.String("location", loc.String()))
	return nil
}

// Validate checks the catalog and reports each issue as a data quality event
func (s *Service) Validate(c *pins.Catalog) *pins.Report {
	report := pins.Validate(c, s.Rules())

	findings := map[string]int{
		"missing_columns":  len(report.MissingColumns),
		"duplicates":       report.DuplicateRecords,
		"missing_required": len(report.MissingRequired),
		"unit_mismatches":  len(report.UnitMismatches),
		"parse_issues":     len(report.ParseIssues),
	}
	s.metrics.RecordValidation(findings)

	for _, issue := range report.Issues {
		s.logger.LogDataQualityEvent(issue)
	}

	s.logger.Info("Validation completed",
		zap.Int("records", report.TotalRecords),
		zap.Int("manufacturers", report.TotalManufacturers),
		zap.Float64("data_quality_score", report.DataQualityScore),
		zap.Int("issues", len(report.Issues)),
	)
	return report
}

// Statistics summarises the catalog as of now
func (s *Service) Statistics(c *pins.Catalog) pins.Statistics {
	return c.Statistics(s.now())
}

// Schema returns the JSON schema of the pin table
func (s *Service) Schema() (string, error) {
	m := schema.NewManager()
	return m.SchemaToJSON(m.PinSchema())
}

// DeriveImperial fills unpublished inch values from millimetres
func (s *Service) DeriveImperial(c *pins.Catalog) int {
	filled := c.DeriveImperial(ImperialPrecision)
	s.logger.Info("Derived imperial values", zap.Int("cells", filled))
	return filled
}

func (s *Service) datasetVersion() string {
	return s.config.GetString(config.KeyDatasetVersion, DefaultDatasetVersion)
}

// OutputDir returns the configured export directory
func (s *Service) OutputDir() string {
	return s.config.GetString(config.KeyOutputDir, DefaultOutputDir)
}
