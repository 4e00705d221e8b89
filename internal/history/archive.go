// Package history provides the flat-file archive of daily gauge readings
// and decision-support statistics over it. It does not participate in the
// live risk computation.
package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// DailyReading is one archived day of stage/discharge for a gauge. Nil
// fields mean no value was recorded for that parameter.
type DailyReading struct {
	Date         time.Time
	StageFt      *float64
	DischargeCFS *float64
}

const dateLayout = "2006-01-02"

var archiveHeader = []string{"date", "stage_ft", "discharge_cfs"}

// WriteArchive writes readings as CSV. Empty cells encode absent values.
func WriteArchive(path string, readings []DailyReading) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(archiveHeader); err != nil {
		return fmt.Errorf("write archive header: %w", err)
	}
	for _, r := range readings {
		row := []string{r.Date.Format(dateLayout), formatCell(r.StageFt), formatCell(r.DischargeCFS)}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write archive row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReadArchive reads a CSV archive written by WriteArchive. An archive with
// only a header yields an empty slice.
func ReadArchive(path string) ([]DailyReading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive header: %w", err)
	}

	var readings []DailyReading
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive %s: %w", path, err)
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("archive %s: malformed row %v", path, row)
		}

		date, err := time.Parse(dateLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("archive %s: bad date %q: %w", path, row[0], err)
		}
		reading := DailyReading{Date: date}
		if reading.StageFt, err = parseCell(row[1]); err != nil {
			return nil, fmt.Errorf("archive %s: bad stage %q: %w", path, row[1], err)
		}
		if reading.DischargeCFS, err = parseCell(row[2]); err != nil {
			return nil, fmt.Errorf("archive %s: bad discharge %q: %w", path, row[2], err)
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

func formatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseCell(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
