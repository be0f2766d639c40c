package source

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToneLevel(t *testing.T) {
	buf := Tone(1000, -20, 32000, 2, 0.5, 16)
	require.Len(t, buf.Data, 32000)
	assert.Equal(t, 2, buf.Format.NumChannels)

	var sum float64
	for i := 0; i < len(buf.Data); i += 2 {
		v := float64(buf.Data[i]) / 32768
		sum += v * v
	}
	rms := 20 * math.Log10(math.Sqrt(sum/float64(len(buf.Data)/2)))
	assert.InDelta(t, -20, rms, 0.05)
	assert.Equal(t, buf.Data[100], buf.Data[101])
}

func TestQuantizeSaturates(t *testing.T) {
	got := Quantize([]float64{0, 0.5, -1, 1, 2, -2}, 16)
	assert.Equal(t, []int{0, 16384, -32768, 32767, 32767, -32768}, got)
	assert.Equal(t, []int{0, 4194304}, Quantize([]float32{0, 0.5}, 24))
}

func TestWAVRoundTrip(t *testing.T) {
	for _, depth := range []int{16, 24} {
		path := filepath.Join(t.TempDir(), "tone.wav")
		want := Tone(440, -12, 16000, 2, 0.1, depth)
		require.NoError(t, WriteWAV(path, want))

		got, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, depth, got.SourceBitDepth)
		assert.Equal(t, 2, got.Format.NumChannels)
		assert.Equal(t, 16000, got.Format.SampleRate)
		assert.Equal(t, want.Data, got.Data)
	}
}

func TestDecodeRejects(t *testing.T) {
	junk := []byte("this is not audio at all, not even close")
	for _, ext := range []string{".wav", ".mp3", ".ogg"} {
		_, err := Decode(bytes.NewReader(junk), ext)
		assert.ErrorIs(t, err, ErrInvalid, ext)
	}
	_, err := Decode(bytes.NewReader(junk), ".flac")
	assert.ErrorIs(t, err, ErrUnsupported)
}
