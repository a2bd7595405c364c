package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"vehicle-price-tracker/models"
)

// CSVWriter exports retained price history to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"vehicle_id", "url", "price", "change", "observed_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteHistory appends one row per observation, oldest first. The change
// column is the difference from the preceding row (0 for the first).
func (c *CSVWriter) WriteHistory(v *models.Vehicle, history []models.PriceObservation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, o := range history {
		change := "0"
		if i > 0 {
			change = o.Price.Sub(history[i-1].Price).String()
		}
		row := []string{
			strconv.FormatInt(v.ID, 10),
			v.URL,
			o.Price.String(),
			change,
			o.ObservedAt.UTC().Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
