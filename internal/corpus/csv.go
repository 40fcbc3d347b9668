package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fertilizer-advisor/internal/domain"
)

// Columns is the corpus column order shared by every sink.
var Columns = []string{
	"nitrogen", "phosphorus", "potassium", "ph", "moisture", "temperature", "crop_type",
	"fertilizer_type", "quantity_kg_per_acre", "soil_health_score",
}

// sampleColumns are the input columns a sample file must carry.
var sampleColumns = Columns[:7]

// ReadSamplesCSV reads soil samples from a CSV with a header row. Columns are
// matched by name, case-insensitively; extra columns such as existing labels
// are ignored.
func ReadSamplesCSV(r io.Reader) ([]domain.SoilSample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty CSV input")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range sampleColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	var samples []domain.SoilSample
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		values := make([]float64, 6)
		for i, col := range sampleColumns[:6] {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[index[col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s: %w", line, col, err)
			}
			values[i] = v
		}

		samples = append(samples, domain.SoilSample{
			Nitrogen:    values[0],
			Phosphorus:  values[1],
			Potassium:   values[2],
			PH:          values[3],
			Moisture:    values[4],
			Temperature: values[5],
			Crop:        domain.CropID(strings.TrimSpace(row[index["crop_type"]])),
		})
	}
	return samples, nil
}

// CSVWriter writes labeled samples as CSV rows in Columns order.
type CSVWriter struct {
	writer        *csv.Writer
	headerWritten bool
}

// NewCSVWriter creates a writer over w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{writer: csv.NewWriter(w)}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *CSVWriter) row(s LabeledSample) []string {
	return []string{
		formatFloat(s.Nitrogen),
		formatFloat(s.Phosphorus),
		formatFloat(s.Potassium),
		formatFloat(s.PH),
		formatFloat(s.Moisture),
		formatFloat(s.Temperature),
		string(s.Crop),
		string(s.FertilizerType),
		formatFloat(s.Quantity),
		formatFloat(s.HealthScore),
	}
}

// Write appends samples, emitting the header before the first row.
func (c *CSVWriter) Write(samples []LabeledSample) error {
	if !c.headerWritten {
		if err := c.writer.Write(Columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		c.headerWritten = true
	}

	for _, s := range samples {
		if err := c.writer.Write(c.row(s)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// Flush flushes buffered rows to the underlying writer.
func (c *CSVWriter) Flush() error {
	c.writer.Flush()
	return c.writer.Error()
}
