package loader

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"FlareScope/internal/domain/models"
	domsvc "FlareScope/internal/domain/service"
)

// FileLoader reads delimited-text instrument files into a numeric time
// series. Binary instrument formats (netCDF, HDF5, FITS) are accepted at
// the upload boundary but not parsed here; loading them reports an error and
// the orchestrator degrades to the synthetic path.
type FileLoader struct{}

func New() *FileLoader { return &FileLoader{} }

// Load parses the file and keeps only the numeric columns, determined from
// the first data row. Header rows and rows that fail numeric parsing are
// skipped.
func (l *FileLoader) Load(path string) (models.TimeSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrLoad, err)
	}
	defer f.Close()

	var records [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = readDelimited(f, ',')
	case ".tsv":
		records, err = readDelimited(f, '\t')
	case ".txt":
		// plain text is whitespace-delimited: spaces or tabs, runs collapsed
		records, err = readWhitespace(f)
	default:
		return nil, fmt.Errorf("%w: unsupported file format %q", models.ErrLoad, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrLoad, err)
	}

	numericCols := findNumericColumns(records)
	if len(numericCols) == 0 {
		return nil, fmt.Errorf("%w in file", models.ErrShape)
	}

	var series models.TimeSeries
	for _, rec := range records {
		row, ok := parseRow(rec, numericCols)
		if ok {
			series = append(series, row)
		}
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("%w in file", models.ErrShape)
	}
	return series, nil
}

func readDelimited(f *os.File, comma rune) ([][]string, error) {
	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func readWhitespace(f *os.File) ([][]string, error) {
	var records [][]string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if fields := strings.Fields(sc.Text()); len(fields) > 0 {
			records = append(records, fields)
		}
	}
	return records, sc.Err()
}

// findNumericColumns picks the columns of the first row that parses as
// numbers in at least one cell. Earlier rows (headers) simply never match.
func findNumericColumns(records [][]string) []int {
	for _, rec := range records {
		var cols []int
		for i, cell := range rec {
			if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
				cols = append(cols, i)
			}
		}
		if len(cols) > 0 {
			return cols
		}
	}
	return nil
}

func parseRow(rec []string, cols []int) ([]float64, bool) {
	row := make([]float64, 0, len(cols))
	for _, i := range cols {
		if i >= len(rec) {
			return nil, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			return nil, false
		}
		row = append(row, v)
	}
	return row, true
}

var _ domsvc.SeriesLoader = (*FileLoader)(nil)
