package audioconv

import (
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/TargetRate))
	}
	return out
}

func TestWAVBytes_DecodesBack(t *testing.T) {
	in := tone(1600)

	b, err := WAVBytes(in, TargetRate)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(b[:4]))

	out, err := DecodeBytes(b, Options{})
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, in[i], out[i], 1e-3)
	}

	short, err := DecodeBytes(b, Options{MaxSamples: 100})
	require.NoError(t, err)
	assert.Len(t, short, 100)
}

func TestDecode_Unsupported(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("hello world")), "", Options{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSniff(t *testing.T) {
	tests := map[string]struct {
		data []byte
		hint string
		want string
	}{
		"hint wins":  {[]byte("OggS"), ".mp3", "mp3"},
		"riff":       {[]byte("RIFFxxxx"), "", "wav"},
		"ogg":        {[]byte("OggSxxxx"), ".bin", "ogg"},
		"id3":        {[]byte("ID3\x04"), "", "mp3"},
		"mpeg frame": {[]byte{0xFF, 0xFB, 0x90, 0x00}, "", "mp3"},
		"opus hint":  {nil, "opus", "ogg"},
		"unknown":    {[]byte("????"), "", ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := bytes.NewReader(tt.data)
			assert.Equal(t, tt.want, sniff(r, tt.hint))
			pos, _ := r.Seek(0, io.SeekCurrent)
			assert.Zero(t, pos)
		})
	}
}

func TestDownmix(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, downmix([]float32{1, 0, 0.5, -0.5}, 2))
	mono := []float32{1, 2}
	assert.Equal(t, mono, downmix(mono, 1))
}

func TestResample(t *testing.T) {
	in := []float32{0, 1, 2, 3}
	assert.Equal(t, in, resample(in, 16000, 16000))

	down := resample([]float32{0, 1, 2, 3, 4, 5}, 48000, 16000)
	assert.Equal(t, []float32{0, 3}, down)

	up := resample([]float32{0, 1}, 8000, 16000)
	assert.Equal(t, []float32{0, 0.5, 1, 1}, up)
}

func TestMemFile(t *testing.T) {
	var f memFile
	_, _ = f.Write([]byte("abcdef"))
	_, err := f.Seek(1, io.SeekStart)
	require.NoError(t, err)
	_, _ = f.Write([]byte("XY"))
	_, _ = f.Seek(0, io.SeekEnd)
	_, _ = f.Write([]byte("!"))
	assert.Equal(t, "aXYdef!", string(f.buf))

	_, err = f.Seek(-10, io.SeekCurrent)
	assert.Error(t, err)
}
