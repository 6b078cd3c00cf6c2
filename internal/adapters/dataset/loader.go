package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samirrijal/trafficmap/internal/core/ports"
)

// FileSource picks a file loader by explicit kind or by extension.
// kind may be "csv", "parquet" or empty.
func FileSource(kind, path string) (ports.DatasetSource, error) {
	if kind == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".parquet", ".pq":
			kind = "parquet"
		case ".csv", ".txt":
			kind = "csv"
		default:
			return nil, fmt.Errorf("cannot infer dataset format from %q", path)
		}
	}

	switch kind {
	case "csv":
		return NewCSVSource(path), nil
	case "parquet":
		return NewParquetSource(path), nil
	default:
		return nil, fmt.Errorf("unsupported file dataset source %q", kind)
	}
}
