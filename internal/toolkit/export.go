package toolkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/data-power-io/excavator-pins/internal/config"
	"github.com/data-power-io/excavator-pins/internal/formats"
	"github.com/data-power-io/excavator-pins/internal/metrics"
	"github.com/data-power-io/excavator-pins/internal/pins"
	"github.com/data-power-io/excavator-pins/internal/schema"
	"github.com/data-power-io/excavator-pins/internal/sqlstore"
	"github.com/data-power-io/excavator-pins/internal/storage"
	"go.uber.org/zap"
)

// ErrUnknownFormat is returned for an export format name that is not supported
var ErrUnknownFormat = errors.New("unknown export format")

// Target is an export destination kind
type Target string

const (
	TargetCSV      Target = "csv"
	TargetExcel    Target = "excel"
	TargetJSON     Target = "json"
	TargetXML      Target = "xml"
	TargetPDF      Target = "pdf"
	TargetSQLite   Target = "sqlite"
	TargetArrow    Target = "arrow"
	TargetCharts   Target = "charts"
	TargetPostgres Target = "postgres"
)

// FileTargets are the targets written by "all", in export order
var FileTargets = []Target{TargetCSV, TargetExcel, TargetJSON, TargetXML, TargetPDF, TargetSQLite, TargetArrow, TargetCharts}

// BaseName is the file name stem of every export
const BaseName = "excavator_database"

// FileName returns the file written for a target, or "" for the table target and
// for charts, which write one file per chart
func (t Target) FileName() string {
	switch t {
	case TargetPostgres, TargetCharts:
		return ""
	case TargetExcel:
		return BaseName + ".xlsx"
	case TargetSQLite:
		return BaseName + ".db"
	case TargetArrow:
		return BaseName + ".arrows"
	default:
		return BaseName + "." + string(t)
	}
}

// ParseTargets expands a list of format names. "all" means every file target.
// Duplicates are dropped and order is kept.
func ParseTargets(names []string) ([]Target, error) {
	known := map[Target]bool{TargetPostgres: true}
	for _, t := range FileTargets {
		known[t] = true
	}

	seen := make(map[Target]bool)
	var targets []Target
	add := func(t Target) {
		if !seen[t] {
			seen[t] = true
			targets = append(targets, t)
		}
	}

	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			switch {
			case name == "":
				continue
			case name == "all":
				for _, t := range FileTargets {
					add(t)
				}
			case name == "xlsx":
				add(TargetExcel)
			case known[Target(name)]:
				add(Target(name))
			default:
				return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
			}
		}
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no format given", ErrUnknownFormat)
	}
	return targets, nil
}

// ExportResult is the outcome of one target of an export run. Path is the file,
// the chart directory or the table written; Files lists the files written.
type ExportResult struct {
	Format   Target        `json:"format"`
	Path     string        `json:"path"`
	Files    []string      `json:"files,omitempty"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// OK reports whether the target was written
func (r ExportResult) OK() bool {
	return r.Err == nil
}

// Export writes the catalog to every requested target. A failing target does not
// stop the others. The returned error joins every failure.
func (s *Service) Export(ctx context.Context, c *pins.Catalog, names []string, outDir string) ([]ExportResult, error) {
	targets, err := ParseTargets(names)
	if err != nil {
		return nil, err
	}

	if outDir == "" {
		outDir = s.OutputDir()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	exportID := s.newID()
	meta := formats.NewMetadata(c, s.datasetVersion(), exportID, s.now())
	logger := s.logger.WithExport(exportID, c.Len())
	logger.Info("Starting export", zap.Int("targets", len(targets)), zap.String("output_dir", outDir))

	results := make([]ExportResult, 0, len(targets))
	var errs []error

	for _, target := range targets {
		result := ExportResult{Format: target, Records: c.Len()}
		if err := ctx.Err(); err != nil {
			result.Err = err
		} else {
			timer := metrics.NewTimer()
			result.Path, result.Files, result.Err = s.exportTarget(ctx, target, c, meta, outDir)
			result.Duration = timer.Duration()
		}

		s.metrics.RecordExport(string(target), result.Err, result.Duration)
		if result.Err != nil {
			result.Records = 0
			s.metrics.RecordError("export")
			errs = append(errs, fmt.Errorf("%s: %w", target, result.Err))
			logger.Error("Export failed", zap.String("format", string(target)), zap.Error(result.Err))
		} else {
			logger.LogExportDuration(string(target), result.Duration, c.Len())
			logger.Info("Exported", zap.String("format", string(target)), zap.String("path", result.Path))
		}
		results = append(results, result)
	}

	return results, errors.Join(errs...)
}

func (s *Service) exportTarget(ctx context.Context, target Target, c *pins.Catalog, meta formats.Metadata, outDir string) (string, []string, error) {
	switch target {
	case TargetPostgres:
		table, err := s.exportPostgres(ctx, c)
		return table, nil, err
	case TargetCharts:
		files, err := s.exportCharts(c, outDir)
		return outDir, files, err
	}

	path := filepath.Join(outDir, target.FileName())
	if err := s.exportFile(ctx, target, c, meta, path); err != nil {
		return path, nil, err
	}
	return path, []string{path}, nil
}

func (s *Service) exportFile(ctx context.Context, target Target, c *pins.Catalog, meta formats.Metadata, path string) error {
	switch target {
	case TargetCSV:
		return writeFile(path, func(w io.Writer) error { return formats.WriteCSV(w, c) })
	case TargetExcel:
		return writeFile(path, func(w io.Writer) error { return formats.WriteExcel(w, c, meta) })
	case TargetJSON:
		return writeFile(path, func(w io.Writer) error { return formats.WriteJSON(w, c, meta) })
	case TargetXML:
		return writeFile(path, func(w io.Writer) error { return formats.WriteXML(w, c, meta) })
	case TargetPDF:
		rows := s.config.GetInt(config.KeyPDFRows, formats.DefaultPDFRows)
		return writeFile(path, func(w io.Writer) error { return formats.WritePDF(w, c, meta, rows) })
	case TargetArrow:
		batchSize := s.config.GetInt(config.KeyArrowBatchSize, schema.DefaultBatchSize)
		return writeFile(path, func(w io.Writer) error {
			_, err := schema.WriteIPC(w, c, batchSize, nil)
			return err
		})
	case TargetSQLite:
		return sqlstore.WriteSQLite(ctx, path, c, s.logger.Logger)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, target)
	}
}

// exportCharts renders every chart into outDir
func (s *Service) exportCharts(c *pins.Catalog, outDir string) ([]string, error) {
	stats := c.Statistics(s.now())
	diameters := c.StickPinDiameters()

	files := make([]string, 0, len(formats.Charts))
	for _, chart := range formats.Charts {
		path := filepath.Join(outDir, chart.FileName)
		if err := writeFile(path, func(w io.Writer) error { return chart.Write(w, stats, diameters) }); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

func (s *Service) exportPostgres(ctx context.Context, c *pins.Catalog) (string, error) {
	pgConfig := s.config.GetPostgresConfig()
	if err := config.ValidatePostgresConfig(pgConfig); err != nil {
		return "", err
	}

	client, err := sqlstore.NewClient(ctx, pgConfig, s.logger.Logger)
	if err != nil {
		return "", err
	}
	defer client.Close()

	table := client.Table().Sanitize()
	if _, err := client.WriteCatalog(ctx, c); err != nil {
		return table, err
	}
	return table, nil
}

// writeFile writes through a temporary file in the same directory and renames it into place
func writeFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Publish uploads every successful file export under an s3://bucket/prefix
// location and returns the uploaded locations.
func (s *Service) Publish(ctx context.Context, results []ExportResult, prefix string) ([]string, error) {
	dest, err := storage.ParseLocation(prefix)
	if err != nil {
		return nil, err
	}
	if !dest.IsS3() {
		return nil, fmt.Errorf("%w: publish target %s is not an s3 location", storage.ErrInvalidLocation, prefix)
	}

	var uploaded []string
	var errs []error
	for _, result := range results {
		if !result.OK() {
			continue
		}

		for _, file := range result.Files {
			target := dest.Join(filepath.Base(file))
			if err := s.store.Upload(ctx, file, target); err != nil {
				s.metrics.RecordError("publish")
				errs = append(errs, fmt.Errorf("%s: %w", result.Format, err))
				continue
			}
			uploaded = append(uploaded, target.String())
			s.logger.Info("Published export", zap.String("format", string(result.Format)), zap.String("location", target.String()))
		}
	}

	return uploaded, errors.Join(errs...)
}
