package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tracePayload() []byte {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString(`{"round":42,"phase":"redcost","found":17,"applied":4,"objective":123.456}` + "\n")
	}
	return []byte(sb.String())
}

func TestRoundTrip(t *testing.T) {
	algorithms := []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}
	data := tracePayload()

	for _, algo := range algorithms {
		t.Run(string(algo), func(t *testing.T) {
			comp, err := NewCompressor(&Config{Algorithm: algo, Level: Default})
			require.NoError(t, err)
			assert.Equal(t, algo, comp.Algorithm())

			compressed, err := comp.Compress(data)
			require.NoError(t, err)

			if algo != None {
				assert.Less(t, len(compressed), len(data),
					"repetitive trace data should shrink")
			}

			decompressed, err := comp.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, data, decompressed)
		})
	}
}

func TestRoundTripLevels(t *testing.T) {
	data := tracePayload()

	for _, level := range []Level{Fastest, Default, Better, Best} {
		comp, err := NewCompressor(&Config{Algorithm: Zstd, Level: level})
		require.NoError(t, err)
		assert.Equal(t, level, comp.Level())

		compressed, err := comp.Compress(data)
		require.NoError(t, err)
		decompressed, err := comp.Decompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, data, decompressed)
	}
}

func TestStreamRoundTrip(t *testing.T) {
	comp, err := NewCompressor(&Config{Algorithm: Gzip, Level: Default})
	require.NoError(t, err)

	data := tracePayload()

	var compressed bytes.Buffer
	require.NoError(t, comp.CompressStream(&compressed, bytes.NewReader(data)))

	var decompressed bytes.Buffer
	require.NoError(t, comp.DecompressStream(&decompressed, &compressed))

	assert.Equal(t, data, decompressed.Bytes())
}

func TestNoneCompressorPassthrough(t *testing.T) {
	comp, err := NewCompressor(&Config{Algorithm: None})
	require.NoError(t, err)

	data := []byte("unchanged")
	out, err := comp.Compress(data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestNewCompressorRejectsUnknown(t *testing.T) {
	_, err := NewCompressor(&Config{Algorithm: Algorithm("brotli")})
	assert.Error(t, err)
}

func TestNewCompressorNilConfig(t *testing.T) {
	comp, err := NewCompressor(nil)
	require.NoError(t, err)
	assert.Equal(t, Zstd, comp.Algorithm())
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{"", None, false},
		{"none", None, false},
		{"gzip", Gzip, false},
		{"snappy", Snappy, false},
		{"lz4", LZ4, false},
		{"zstd", Zstd, false},
		{"s2", S2, false},
		{"deflate", Deflate, false},
		{"brotli", None, true},
		{"ZSTD", None, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompressorPool(t *testing.T) {
	cp := NewCompressorPool(&Config{Algorithm: Snappy, Level: Fastest})
	data := tracePayload()

	compressed, err := cp.Compress(data)
	require.NoError(t, err)

	decompressed, err := cp.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, data, decompressed)

	comp := cp.Get()
	require.NotNil(t, comp)
	assert.Equal(t, Snappy, comp.Algorithm())
	cp.Put(comp)
}

func TestCompressorPoolConcurrent(t *testing.T) {
	cp := NewCompressorPool(&Config{Algorithm: Zstd, Level: Fastest})
	data := tracePayload()

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 20; j++ {
				compressed, err := cp.Compress(data)
				if err != nil {
					done <- err
					return
				}
				decompressed, err := cp.Decompress(compressed)
				if err != nil {
					done <- err
					return
				}
				if !bytes.Equal(data, decompressed) {
					done <- assert.AnError
					return
				}
			}
			done <- nil
		}()
	}

	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
}
