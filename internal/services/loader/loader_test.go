package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"FlareScope/internal/domain/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSVSkipsHeader(t *testing.T) {
	path := writeFile(t, "flux.csv", "time,short,long\n1,0.5,0.7\n2,0.6,0.8\n")

	series, err := New().Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(series))
	}
	if series.FeatureCount() != 3 {
		t.Fatalf("expected 3 numeric columns, got %d", series.FeatureCount())
	}
	if series[1][1] != 0.6 {
		t.Fatalf("unexpected value %v", series[1][1])
	}
}

func TestLoadTabSeparated(t *testing.T) {
	path := writeFile(t, "flux.txt", "0.1\t0.2\n0.3\t0.4\n")

	series, err := New().Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 2 || series.FeatureCount() != 2 {
		t.Fatalf("unexpected shape %dx%d", len(series), series.FeatureCount())
	}
}

func TestLoadSpaceSeparatedText(t *testing.T) {
	// plain .txt is whitespace-delimited, runs of spaces and tabs collapse
	path := writeFile(t, "flux.txt", "0.1  0.2\n0.3 \t 0.4\n\n0.5 0.6\n")

	series, err := New().Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 3 || series.FeatureCount() != 2 {
		t.Fatalf("unexpected shape %dx%d", len(series), series.FeatureCount())
	}
	if series[1][1] != 0.4 {
		t.Fatalf("unexpected value %v", series[1][1])
	}
}

func TestLoadMixedColumnsKeepsNumeric(t *testing.T) {
	// the label column never parses, only the two numeric columns survive
	path := writeFile(t, "flux.csv", "goes-16,0.5,0.7\ngoes-16,0.6,0.8\n")

	series, err := New().Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if series.FeatureCount() != 2 {
		t.Fatalf("expected 2 numeric columns, got %d", series.FeatureCount())
	}
	if series[0][0] != 0.5 || series[0][1] != 0.7 {
		t.Fatalf("unexpected row %v", series[0])
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "flux.nc", "binary")

	_, err := New().Load(path)
	if !errors.Is(err, models.ErrLoad) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestLoadNoNumericData(t *testing.T) {
	path := writeFile(t, "empty.csv", "a,b,c\nfoo,bar,baz\n")

	_, err := New().Load(path)
	if !errors.Is(err, models.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := New().Load(filepath.Join(t.TempDir(), "absent.csv"))
	if !errors.Is(err, models.ErrLoad) {
		t.Fatalf("expected load error, got %v", err)
	}
}
