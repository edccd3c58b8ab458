// Package export writes and reads the JSON result document of a run, plus the
// flat CSV and report side outputs.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "aquaculture-risk/internal/errors"
	"aquaculture-risk/internal/models"
)

// Document is the exported result of a run.
type Document struct {
	Metadata  models.RunMetadata       `json:"metadata"`
	Summary   models.SummaryStatistics `json:"summary_statistics"`
	Scenarios []models.Scenario        `json:"scenarios"`
}

// Exporter writes result documents.
type Exporter struct {
	now func() time.Time
}

// NewExporter creates an exporter stamping documents with the wall clock.
func NewExporter() *Exporter {
	return &Exporter{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets the clock used for generated_at.
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

// Export writes doc to path, stamping generated_at. Raw paths are embedded
// only when includePaths is set. The file is written next to path and renamed
// into place, so readers never see a partial document.
func (e *Exporter) Export(doc Document, path string, includePaths bool) error {
	doc.Metadata.GeneratedAt = e.now()
	if doc.Metadata.SimulationType == "" {
		doc.Metadata.SimulationType = models.SimulationType
	}

	scenarios := make([]models.Scenario, len(doc.Scenarios))
	for i, s := range doc.Scenarios {
		if includePaths {
			scenarios[i] = s
		} else {
			scenarios[i] = s.WithoutPaths()
		}
	}
	doc.Scenarios = scenarios

	return writeAtomic(path, "export", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	})
}

// Read loads a document written by Export.
func Read(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, apperrors.NewSerializationError(path, "read", err)
	}
	defer f.Close()

	var doc Document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return Document{}, apperrors.NewSerializationError(path, "decode", err)
	}
	if doc.Metadata.SimulationType != models.SimulationType {
		return Document{}, apperrors.NewSerializationError(path, "decode",
			fmt.Errorf("unexpected simulation_type %q", doc.Metadata.SimulationType))
	}
	return doc, nil
}

// WriteCSV writes one row per scenario. Raw paths are never included.
func WriteCSV(path string, scenarios []models.Scenario) error {
	rows := make([]models.Scenario, len(scenarios))
	for i, s := range scenarios {
		rows[i] = s.WithoutPaths()
	}
	return writeAtomic(path, "csv", func(w io.Writer) error {
		return gocsv.Marshal(&rows, w)
	})
}

// ReadCSV loads scenarios written by WriteCSV.
func ReadCSV(path string) ([]models.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewSerializationError(path, "read", err)
	}
	defer f.Close()

	var rows []models.Scenario
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, apperrors.NewSerializationError(path, "decode", err)
	}
	return rows, nil
}

// WriteReport writes the risk report as JSON.
func WriteReport(path string, report models.RiskReport) error {
	return writeAtomic(path, "report", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	})
}

func writeAtomic(path, op string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.NewSerializationError(path, op, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.NewSerializationError(path, op, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if err := write(tmp); err != nil {
		tmp.Close()
		return apperrors.NewSerializationError(path, op, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.NewSerializationError(path, op, err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewSerializationError(path, op, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return apperrors.NewSerializationError(path, op, err)
	}
	return nil
}
