package encoding

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCompression(t *testing.T) {
	tests := []struct {
		path     string
		expected CompressionType
		trimmed  string
	}{
		{"data.csv", CompressionNone, "data.csv"},
		{"data.csv.gz", CompressionGZIP, "data.csv"},
		{"DATA.CSV.GZ", CompressionGZIP, "DATA.CSV"},
		{"data.json.zz", CompressionZLIB, "data.json"},
		{"/tmp/data.csv.zst", CompressionZSTD, "/tmp/data.csv"},
		{"archive.tar", CompressionNone, "archive.tar"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c, trimmed := DetectCompression(tt.path)
			assert.Equal(t, tt.expected, c)
			assert.Equal(t, tt.trimmed, trimmed)
		})
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("id,email\n1,user@example.com\n"), 100)

	for _, c := range []CompressionType{CompressionNone, CompressionGZIP, CompressionZLIB, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, c)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			if c != CompressionNone {
				assert.Less(t, buf.Len(), len(payload))
			}

			r, err := NewReader(&buf, c)
			require.NoError(t, err)
			defer r.Close()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestNewReaderCorruptStream(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("not gzip")), CompressionGZIP)
	assert.Error(t, err)

	_, err = NewReader(bytes.NewReader(nil), CompressionType(42))
	assert.Error(t, err)
}
