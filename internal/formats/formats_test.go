package formats

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/data-power-io/excavator-pins/internal/pins"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sampleCSV = "\ufeffManufacturer,Model,Stick_Pin_Diameter_mm,Stick_Pin_Diameter_inch,Stick_Width_mm,Stick_Width_inch,Link_Pin_Diameter_mm,Link_Pin_Diameter_inch,Link_Width_mm,Link_Width_inch,Pin_Centers_mm,Pin_Centers_inch,Tip_Radius,Data_Source,Notes\n" +
	"Caterpillar,320,80,3.15,330,12.99,80,3.15,330,12.99,460,18.11,,OEM,\n" +
	"Komatsu,PC200-8,70,2.756,292,11.5,70,2.756,292,11.5,400,15.75,,Dealer,\"Rebuilt, 2019\"\n" +
	"Kubota,KX040-4,40,n/a,170,6.69,40,1.575,170,6.69,260,10.24,,OEM,\n"

var exportDate = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleCatalog(t *testing.T) *pins.Catalog {
	t.Helper()
	c, err := ReadCSV(strings.NewReader(sampleCSV), zap.NewNop())
	require.NoError(t, err)
	return c
}

func sampleMetadata(c *pins.Catalog) Metadata {
	return NewMetadata(c, "2024.1", "3f0c9a4e-0000-4000-8000-000000000001", exportDate)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"data/excavator_database.csv", CSV},
		{"s3://pins/releases/Excavator_Database.XLSX", Excel},
		{"excavator_database.xml", XML},
		{"excavator_database.json", JSON},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := DetectFormat("excavator_database.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = DetectFormat("README")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "xlsx", Excel.Extension())
	assert.Equal(t, "csv", CSV.Extension())
	assert.Equal(t, "pdf", PDF.Extension())
}

func TestReadCSV(t *testing.T) {
	c := sampleCatalog(t)

	require.Equal(t, 3, c.Len())
	assert.Equal(t, "csv", c.Format)
	assert.Equal(t, pins.ColManufacturer, c.Header[0])
	assert.Empty(t, c.MissingColumns())

	komatsu := c.Records[1]
	assert.Equal(t, "PC200-8", komatsu.Model)
	assert.Equal(t, pins.Some(70), komatsu.StickPinDiameter.MM)
	assert.Equal(t, "Rebuilt, 2019", komatsu.Notes)
	assert.False(t, komatsu.TipRadius.Valid)

	assert.False(t, c.Records[2].StickPinDiameter.Inch.Valid)
	assert.Empty(t, c.Issues)
}

func TestReadCSV_ParseIssues(t *testing.T) {
	input := "Manufacturer,Model,Stick_Pin_Diameter_mm,Link_Pin_Diameter_mm,Pin_Centers_mm\n" +
		"Volvo,EC220E,ninety,80,\n" +
		"Hitachi,ZX210\n"

	c, err := ReadCSV(strings.NewReader(input), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	require.Len(t, c.Issues, 2)
	assert.Equal(t, 1, c.Issues[0].Row)
	assert.Equal(t, pins.ColStickPinDiameterMM, c.Issues[0].Column)
	assert.Equal(t, "ninety", c.Issues[0].Value)
	assert.Equal(t, 2, c.Issues[1].Row)
	assert.Contains(t, c.Issues[1].Reason, "row has 2 cells")

	assert.False(t, c.Records[0].StickPinDiameter.MM.Valid)
	assert.Equal(t, pins.Some(80), c.Records[0].LinkPinDiameter.MM)
	assert.Contains(t, c.MissingColumns(), pins.ColStickPinDiameterInch)
}

func TestReadCSV_SkipsBlankRows(t *testing.T) {
	input := "Manufacturer,Model\nDoosan,DX225LC\n,\n\nCase,CX210D\n"
	c, err := ReadCSV(strings.NewReader(input), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), zap.NewNop())
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	c := sampleCatalog(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, c))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(pins.ColumnNames(), ","), lines[0])
	assert.Equal(t, "Caterpillar,320,80,3.15,330,12.99,80,3.15,330,12.99,460,18.11,,OEM,", lines[1])
	assert.Contains(t, lines[2], `"Rebuilt, 2019"`)

	again, err := ReadCSV(&buf, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, c.Records, again.Records)
}

func TestWriteXML(t *testing.T) {
	c := sampleCatalog(t)

	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, c, sampleMetadata(c)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "<ExcavatorDatabase>")
	assert.Contains(t, out, "    <TotalRecords>3</TotalRecords>")
	assert.Contains(t, out, "<ExportDate>2024-05-01T12:00:00Z</ExportDate>")
	assert.Contains(t, out, "<Version>2024.1</Version>")
	assert.Contains(t, out, "<Stick_Pin_Diameter_mm>80</Stick_Pin_Diameter_mm>")
	assert.Contains(t, out, "<Tip_Radius></Tip_Radius>")

	again, err := ReadXML(&buf, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, c.Records, again.Records)
	assert.Equal(t, pins.ColumnNames(), again.Header)
}

func TestReadXML_Invalid(t *testing.T) {
	_, err := ReadXML(strings.NewReader("<ExcavatorDatabase><Excavators>"), zap.NewNop())
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	c := sampleCatalog(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, c, sampleMetadata(c)))
	out := buf.String()

	assert.Contains(t, out, `"total_records": 3`)
	assert.Contains(t, out, `"export_id": "3f0c9a4e-0000-4000-8000-000000000001"`)
	assert.Contains(t, out, `"Tip_Radius": null`)

	// keys follow the column order
	first := strings.Index(out, `"Manufacturer"`)
	pin := strings.Index(out, `"Stick_Pin_Diameter_mm"`)
	notes := strings.Index(out, `"Notes"`)
	assert.True(t, first < pin && pin < notes)

	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &generic))

	again, err := ReadJSON(bytes.NewReader(buf.Bytes()), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, c.Records, again.Records)
}

func TestReadJSON_PartialRecords(t *testing.T) {
	input := `{"metadata":{},"excavators":[{"Model":"EC220E","Manufacturer":"Volvo","Stick_Pin_Diameter_mm":"80.5","Extra":true}]}`

	c, err := ReadJSON(strings.NewReader(input), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, []string{pins.ColManufacturer, pins.ColModel, pins.ColStickPinDiameterMM, "Extra"}, c.Header)
	assert.Equal(t, pins.Some(80.5), c.Records[0].StickPinDiameter.MM)
}

func TestWriteExcel(t *testing.T) {
	c := sampleCatalog(t)

	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, c, sampleMetadata(c)))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetData, SheetStatistics, SheetManufacturers}, f.GetSheetList())

	stats, err := f.GetRows(SheetStatistics)
	require.NoError(t, err)
	assert.Equal(t, []string{"Metric", "Value"}, stats[0])
	assert.Equal(t, []string{"Total Records", "3"}, stats[1])

	makers, err := f.GetRows(SheetManufacturers)
	require.NoError(t, err)
	assert.Len(t, makers, 4)

	again, err := ReadExcel(bytes.NewReader(buf.Bytes()), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, c.Records, again.Records)
}

func TestReadExcel_FirstSheetFallback(t *testing.T) {
	f := excelize.NewFile()
	header := []interface{}{"Manufacturer", "Model", "Stick_Pin_Diameter_mm"}
	row := []interface{}{"JCB", "JS220", 80.0}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &row))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	c, err := ReadExcel(&buf, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	assert.Equal(t, "JCB", c.Records[0].Manufacturer)
	assert.Equal(t, pins.Some(80), c.Records[0].StickPinDiameter.MM)
}

func TestWritePDF(t *testing.T) {
	c := sampleCatalog(t)

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, c, sampleMetadata(c), 0))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}

func TestWritePDF_ManyRowsPaginates(t *testing.T) {
	records := make([]pins.PinSpec, 250)
	for i := range records {
		records[i] = pins.PinSpec{Manufacturer: "Liebherr", Model: "R 9800 Mining Edition", StickPinDiameter: pins.Dimension{MM: pins.Some(float64(i))}}
	}
	c := pins.NewCatalog(records)

	var one, many bytes.Buffer
	require.NoError(t, WritePDF(&one, c, NewMetadata(c, "2024.1", "", exportDate), 10))
	require.NoError(t, WritePDF(&many, c, NewMetadata(c, "2024.1", "", exportDate), 250))
	assert.Greater(t, many.Len(), one.Len())
}

func TestCharts(t *testing.T) {
	c := sampleCatalog(t)
	stats := c.Statistics(exportDate)

	names := make([]string, len(Charts))
	for i, chart := range Charts {
		names[i] = chart.FileName

		var buf bytes.Buffer
		require.NoError(t, chart.Write(&buf, stats, c.StickPinDiameters()), chart.FileName)

		cfg, err := png.DecodeConfig(&buf)
		require.NoError(t, err, chart.FileName)
		assert.Greater(t, cfg.Width, cfg.Height, chart.FileName)
	}

	assert.Equal(t, []string{"manufacturer_distribution.png", "pin_diameter_distribution.png", "weight_class_distribution.png"}, names)
}

func TestCharts_EmptyCatalog(t *testing.T) {
	c := pins.NewCatalog(nil)
	stats := c.Statistics(exportDate)

	for _, chart := range Charts {
		var buf bytes.Buffer
		require.NoError(t, chart.Write(&buf, stats, nil), chart.FileName)
		_, err := png.DecodeConfig(&buf)
		assert.NoError(t, err, chart.FileName)
	}
}

func TestTruncateAndNumber(t *testing.T) {
	assert.Equal(t, "R 9800 Mining E", truncate("R 9800 Mining Edition"))
	assert.Equal(t, "320", truncate("320"))
	assert.Equal(t, "-", pdfNumber(pins.Measure{}))
	assert.Equal(t, "3.15", pdfNumber(pins.Some(3.15)))
}

func TestDecode_RejectsPDF(t *testing.T) {
	_, err := Decode(PDF, strings.NewReader(""), zap.NewNop())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestMarshalRecord(t *testing.T) {
	c := sampleCatalog(t)

	data, err := MarshalRecord(&c.Records[0])
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, "{\n  \"Manufacturer\": \"Caterpillar\","))
	assert.Contains(t, out, `"Stick_Pin_Diameter_inch": 3.15`)
	assert.Contains(t, out, `"Notes": null`)
}
