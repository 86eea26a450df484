package pvpython

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ensigniasec/render-vtps/internal/engine"
)

const seriesVersion = "1.0"

type openSeriesParams struct {
	engine.Series
	// SeriesFile is a ParaView .series index carrying the step times.
	SeriesFile string `json:"series_file,omitempty"`
}

type seriesIndex struct {
	Version string        `json:"file-series-version"`
	Files   []seriesEntry `json:"files"`
}

type seriesEntry struct {
	Name string  `json:"name"`
	Time float64 `json:"time"`
}

// writeSeriesFile writes a .series index for s into dir and returns its path.
// ParaView picks the reader from the extension in front of ".series", so the
// index is named after the first step file.
func writeSeriesFile(dir string, s engine.Series) (string, error) {
	if len(s.Files) == 0 {
		return "", fmt.Errorf("series %s has no files", s.Name)
	}
	if len(s.Times) != len(s.Files) {
		return "", fmt.Errorf("series %s has %d files but %d times", s.Name, len(s.Files), len(s.Times))
	}
	idx := seriesIndex{Version: seriesVersion, Files: make([]seriesEntry, 0, len(s.Files))}
	for i, f := range s.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return "", err
		}
		idx.Files = append(idx.Files, seriesEntry{Name: abs, Time: s.Times[i]})
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, "*-"+filepath.Base(s.Files[0])+".series")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
