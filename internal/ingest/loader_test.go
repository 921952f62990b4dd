package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/qualitygate/internal/utils/encoding"
	"github.com/inferloop/qualitygate/pkg/errors"
	"github.com/inferloop/qualitygate/pkg/models"
)

func createTestLoader(t *testing.T, config *LoaderConfig) *FileLoader {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	loader, err := NewFileLoader(config, logger)
	require.NoError(t, err)
	return loader
}

func TestReadCSV(t *testing.T) {
	loader := createTestLoader(t, nil)

	input := "id,email,score\n1,a@x.io,3.5\n2,,NA\n3,null,NaN\n4,\"b,c@x.io\",7\n"
	ds, err := loader.ReadCSV(strings.NewReader(input), "users")
	require.NoError(t, err)

	assert.Equal(t, "users", ds.Name)
	assert.Equal(t, []string{"id", "email", "score"}, ds.ColumnNames())
	assert.Equal(t, 4, ds.RowCount())

	email, _ := ds.Column("email")
	assert.Equal(t, []models.Value{models.String("a@x.io"), models.Null(), models.Null(), models.String("b,c@x.io")}, email.Values)

	score, _ := ds.Column("score")
	assert.Equal(t, 2, score.NullCount())
}

func TestReadCSVCustomNullTokens(t *testing.T) {
	loader := createTestLoader(t, &LoaderConfig{NullTokens: []string{"-"}, Delimiter: ";", TrimSpace: true})

	ds, err := loader.ReadCSV(strings.NewReader("a;b\n - ;\nx; y \n"), "t")
	require.NoError(t, err)

	a, _ := ds.Column("a")
	b, _ := ds.Column("b")
	assert.Equal(t, []models.Value{models.Null(), models.String("x")}, a.Values)
	assert.Equal(t, []models.Value{models.String(""), models.String("y")}, b.Values)
}

func TestReadCSVErrors(t *testing.T) {
	loader := createTestLoader(t, nil)

	_, err := loader.ReadCSV(strings.NewReader(""), "empty")
	assert.True(t, errors.IsInputError(err))

	_, err = loader.ReadCSV(strings.NewReader("a,b\n1\n"), "ragged")
	assert.Error(t, err)

	_, err = loader.ReadCSV(strings.NewReader("a,a\n1,2\n"), "dupes")
	assert.True(t, errors.IsInputError(err))
}

func TestReadCSVHeaderOnly(t *testing.T) {
	loader := createTestLoader(t, nil)

	ds, err := loader.ReadCSV(strings.NewReader("a,b\n"), "t")
	require.NoError(t, err)
	assert.Len(t, ds.Columns, 2)
	assert.Equal(t, 0, ds.RowCount())
}

func TestReadJSON(t *testing.T) {
	loader := createTestLoader(t, nil)

	payload := `{"name": "orders", "columns": [
		{"name": "id", "values": [1, 2, 3]},
		{"name": "note", "values": ["", null, "late"]}
	]}`
	ds, err := loader.ReadJSON(strings.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, "orders", ds.Name)
	note, _ := ds.Column("note")
	assert.Equal(t, []models.Value{models.String(""), models.Null(), models.String("late")}, note.Values)

	_, err = loader.ReadJSON(strings.NewReader(`{"columns": [{"name": "a", "values": [1]}, {"name": "b", "values": []}]}`))
	assert.True(t, errors.IsInputError(err))
}

func TestLoadDataset(t *testing.T) {
	dir := t.TempDir()
	loader := createTestLoader(t, nil)

	csvPath := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("amount\n1\n2\n"), 0o644))

	ds, err := loader.LoadDataset(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "sales", ds.Name)
	assert.Equal(t, 2, ds.RowCount())

	for _, name := range []string{"sales.csv.gz", "sales.csv.zst"} {
		path := filepath.Join(dir, name)
		writeCompressed(t, path, "amount\n1\n2\n3\n")

		ds, err = loader.LoadDataset(path)
		require.NoError(t, err, name)
		assert.Equal(t, "sales", ds.Name)
		assert.Equal(t, 3, ds.RowCount())
	}

	corrupt := filepath.Join(dir, "broken.csv.gz")
	require.NoError(t, os.WriteFile(corrupt, []byte("plain text"), 0o644))
	_, err = loader.LoadDataset(corrupt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), errors.CodeDecodeFailed)

	_, err = loader.LoadDataset(filepath.Join(dir, "data.parquet"))
	assert.Error(t, err)

	xmlPath := filepath.Join(dir, "data.xml")
	require.NoError(t, os.WriteFile(xmlPath, []byte("<a/>"), 0o644))
	_, err = loader.LoadDataset(xmlPath)
	assert.ErrorIs(t, err, errors.ErrUnsupportedFormat)
}

func TestNewFileLoaderRejectsLongDelimiter(t *testing.T) {
	_, err := NewFileLoader(&LoaderConfig{Delimiter: "::"}, logrus.New())
	assert.True(t, errors.IsConfigurationError(err))
}

func writeCompressed(t *testing.T, path, content string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	compression, _ := encoding.DetectCompression(path)
	w, err := encoding.NewWriter(f, compression)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}
