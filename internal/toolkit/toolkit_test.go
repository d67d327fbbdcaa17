package toolkit

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/data-power-io/excavator-pins/internal/config"
	"github.com/data-power-io/excavator-pins/internal/formats"
	"github.com/data-power-io/excavator-pins/internal/logging"
	"github.com/data-power-io/excavator-pins/internal/pins"
	"github.com/data-power-io/excavator-pins/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = "Manufacturer,Model,Stick_Pin_Diameter_mm,Stick_Pin_Diameter_inch,Stick_Width_mm,Stick_Width_inch,Link_Pin_Diameter_mm,Link_Pin_Diameter_inch,Link_Width_mm,Link_Width_inch,Pin_Centers_mm,Pin_Centers_inch,Tip_Radius,Data_Source,Notes\n" +
	"Caterpillar,320,80,3.15,330,12.99,80,3.15,330,12.99,460,18.11,,OEM,\n" +
	"Komatsu,PC200-8,70,2.756,292,11.5,70,2.756,292,11.5,400,15.75,,OEM,\n" +
	"Kubota,KX040-4,40,,170,,40,,170,,260,,,Dealer,\n"

const testExportID = "0b6f1c3e-5d2a-4c1b-9f7e-2a8d4e6c1f00"

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Set(config.KeyExpectedRecords, "3")
	cfg.Set(config.KeyExpectedManufacturer, "3")
	cfg.Set(config.KeyDatasetVersion, "2024.1")
	// the fixture leaves tip radius, notes and some imperial values unpublished
	cfg.Set(config.KeyQualityThreshold, "70")

	svc := NewService(cfg, logging.Nop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return testExportID }
	return svc
}

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "excavator_database.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o644))
	return path
}

func TestParseTargets(t *testing.T) {
	targets, err := ParseTargets([]string{"all"})
	require.NoError(t, err)
	assert.Equal(t, FileTargets, targets)
	assert.NotContains(t, targets, TargetPostgres)

	targets, err = ParseTargets([]string{"csv,json", "CSV", " xlsx ", "postgres"})
	require.NoError(t, err)
	assert.Equal(t, []Target{TargetCSV, TargetJSON, TargetExcel, TargetPostgres}, targets)

	_, err = ParseTargets([]string{"csv,parquet"})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = ParseTargets(nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestTargetFileName(t *testing.T) {
	assert.Equal(t, "excavator_database.csv", TargetCSV.FileName())
	assert.Equal(t, "excavator_database.xlsx", TargetExcel.FileName())
	assert.Equal(t, "excavator_database.db", TargetSQLite.FileName())
	assert.Equal(t, "excavator_database.arrows", TargetArrow.FileName())
	assert.Equal(t, "", TargetPostgres.FileName())
	assert.Equal(t, "", TargetCharts.FileName())
}

func TestLoad(t *testing.T) {
	svc := newTestService(t)
	path := writeDataset(t)

	c, err := svc.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, path, c.Source)
	assert.Equal(t, "csv", c.Format)
}

func TestLoad_Errors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Load(ctx, "excavator_database.pdf")
	assert.ErrorIs(t, err, formats.ErrUnsupportedFormat)

	_, err = svc.Load(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidLocation)

	_, err = svc.Load(ctx, filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheck(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.NoError(t, svc.Check(ctx, writeDataset(t)))
	assert.Error(t, svc.Check(ctx, filepath.Join(t.TempDir(), "missing.csv")))
}

func TestValidate(t *testing.T) {
	svc := newTestService(t)
	c, err := svc.Load(context.Background(), writeDataset(t))
	require.NoError(t, err)

	report := svc.Validate(c)
	assert.True(t, report.OK(), report.Issues)
	assert.Equal(t, 3, report.RecordCount.Actual)

	svc.config.Set(config.KeyExpectedRecords, "929")
	report = svc.Validate(c)
	assert.False(t, report.OK())
	assert.Contains(t, report.Issues, "Expected 929 records, found 3")
}

func TestRules(t *testing.T) {
	svc := newTestService(t)
	svc.config.Set(config.KeyUnitTolerance, "0.05")

	rules := svc.Rules()
	assert.Equal(t, 3, rules.ExpectedRecords)
	assert.Equal(t, 0.05, rules.UnitTolerance)
	assert.Equal(t, 70.0, rules.QualityThreshold)
}

func TestExport_AllFileTargets(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	c, err := svc.Load(ctx, writeDataset(t))
	require.NoError(t, err)

	outDir := filepath.Join(t.TempDir(), "output")
	results, err := svc.Export(ctx, c, []string{"all"}, outDir)
	require.NoError(t, err)
	require.Len(t, results, len(FileTargets))

	written := 0
	for _, r := range results {
		assert.True(t, r.OK(), r.Format)
		assert.Equal(t, 3, r.Records)
		require.NotEmpty(t, r.Files, r.Format)
		for _, file := range r.Files {
			info, err := os.Stat(file)
			require.NoError(t, err, r.Format)
			assert.Greater(t, info.Size(), int64(0), r.Format)
			written++
		}
	}

	data, err := os.ReadFile(filepath.Join(outDir, "excavator_database.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), testExportID)
	assert.Contains(t, string(data), `"version": "2024.1"`)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, written)
	assert.Equal(t, len(FileTargets)-1+len(formats.Charts), written)
}

func TestExport_Charts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	c, err := svc.Load(ctx, writeDataset(t))
	require.NoError(t, err)

	outDir := t.TempDir()
	results, err := svc.Export(ctx, c, []string{"charts"}, outDir)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, outDir, results[0].Path)

	for _, name := range []string{"manufacturer_distribution.png", "pin_diameter_distribution.png", "weight_class_distribution.png"} {
		path := filepath.Join(outDir, name)
		assert.Contains(t, results[0].Files, path)

		f, err := os.Open(path)
		require.NoError(t, err, name)
		cfg, err := png.DecodeConfig(f)
		f.Close()
		require.NoError(t, err, name)
		assert.Greater(t, cfg.Width, 0, name)
	}
}

func TestExport_ReloadsWhatItWrites(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	c, err := svc.Load(ctx, writeDataset(t))
	require.NoError(t, err)

	outDir := t.TempDir()
	_, err = svc.Export(ctx, c, []string{"xml,excel"}, outDir)
	require.NoError(t, err)

	for _, name := range []string{"excavator_database.xml", "excavator_database.xlsx"} {
		again, err := svc.Load(ctx, filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Equal(t, c.Records, again.Records, name)
	}
}

func TestExport_PostgresFailureDoesNotStopOthers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	c := pins.NewCatalog([]pins.PinSpec{{Manufacturer: "Volvo", Model: "EC220E"}})

	results, err := svc.Export(ctx, c, []string{"postgres", "csv"}, t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingField)

	require.Len(t, results, 2)
	assert.False(t, results[0].OK())
	assert.Equal(t, 0, results[0].Records)
	assert.True(t, results[1].OK())
}

func TestExport_CancelledContext(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := svc.Export(ctx, pins.NewCatalog(nil), []string{"csv,json"}, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	for _, r := range results {
		assert.False(t, r.OK())
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Export(context.Background(), pins.NewCatalog(nil), []string{"docx"}, t.TempDir())
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestPublish_RequiresS3(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Publish(context.Background(), nil, "releases/2024.1")
	assert.ErrorIs(t, err, storage.ErrInvalidLocation)
}

func TestPublish_SkipsFailedResults(t *testing.T) {
	svc := newTestService(t)
	results := []ExportResult{
		{Format: TargetCSV, Err: errors.New("disk full")},
		{Format: TargetPostgres, Path: `"public"."excavators"`},
		{Format: TargetCharts, Path: "output", Err: errors.New("no space left")},
	}

	uploaded, err := svc.Publish(context.Background(), results, "s3://pins-releases/2024.1")
	require.NoError(t, err)
	assert.Empty(t, uploaded)
}

func TestDeriveImperial(t *testing.T) {
	svc := newTestService(t)
	c, err := svc.Load(context.Background(), writeDataset(t))
	require.NoError(t, err)

	assert.Equal(t, 5, svc.DeriveImperial(c))
	kubota, err := c.Lookup("kubota", "kx040-4")
	require.NoError(t, err)
	assert.Equal(t, pins.Some(1.575), kubota.StickPinDiameter.Inch)
}

func TestSchema(t *testing.T) {
	out, err := newTestService(t).Schema()
	require.NoError(t, err)
	assert.Contains(t, out, `"entity": "excavators"`)
}
