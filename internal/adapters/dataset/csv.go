package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/pkg/metrics"
)

var columnAliases = map[string][]string{
	"time":      {"time", "timestamp", "datetime"},
	"speed":     {"speed"},
	"latitude":  {"latitude", "lat"},
	"longitude": {"longitude", "lon", "lng"},
}

// CSVSource reads records from a CSV export with a header row.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Describe() string { return "csv:" + s.path }

// Load opens the file and decodes it with ReadCSV.
func (s *CSVSource) Load(ctx context.Context) (domain.Table, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	table, dropped, err := ReadCSV(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if dropped > 0 {
		metrics.RowsDropped.WithLabelValues("csv").Add(float64(dropped))
		slog.Warn("dropped malformed rows", "source", s.Describe(), "dropped", dropped)
	}
	return table, nil
}

// ReadCSV decodes records from r. Rows with a missing or unparseable field
// are skipped and counted in dropped.
func ReadCSV(ctx context.Context, r io.Reader) (table domain.Table, dropped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("missing header row")
		}
		return nil, 0, err
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, 0, err
	}

	for line := 2; ; line++ {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, dropped, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				dropped++
				continue
			}
			return nil, dropped, err
		}
		rec, err := decodeRow(row, cols)
		if err != nil {
			slog.Debug("skip csv row", "line", line, "error", err)
			dropped++
			continue
		}
		table = append(table, rec)
	}
	return table, dropped, nil
}

func resolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}

	cols := make(map[string]int, len(columnAliases))
	var missing []string
	for field, aliases := range columnAliases {
		found := false
		for _, a := range aliases {
			if i, ok := index[a]; ok {
				cols[field] = i
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func decodeRow(row []string, cols map[string]int) (domain.Record, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	ts, err := ParseTime(field("time"))
	if err != nil {
		return domain.Record{}, err
	}
	speed, err := strconv.ParseFloat(field("speed"), 64)
	if err != nil {
		return domain.Record{}, fmt.Errorf("speed: %w", err)
	}
	lat, err := strconv.ParseFloat(field("latitude"), 64)
	if err != nil {
		return domain.Record{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(field("longitude"), 64)
	if err != nil {
		return domain.Record{}, fmt.Errorf("longitude: %w", err)
	}

	rec := domain.Record{Time: ts, Speed: speed, Latitude: lat, Longitude: lon}
	if !rec.Valid() {
		return domain.Record{}, fmt.Errorf("out of range values")
	}
	return rec, nil
}
