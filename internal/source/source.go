// Package source decodes and encodes the audio files the command line tool
// feeds through the simulated hardware.
package source

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// ErrUnsupported is returned for file types without a decoder.
var ErrUnsupported = errors.New("source: unsupported file type")

// ErrInvalid is returned when a file cannot be parsed.
var ErrInvalid = errors.New("source: invalid file")

// vorbisDepth is the word width decoded Ogg Vorbis audio is quantized to.
const vorbisDepth = 24

// Load decodes a WAV, MP3 or Ogg Vorbis file into interleaved integer
// samples. SourceBitDepth is set to the width of the decoded words.
func Load(path string) (*audio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	defer f.Close()

	buf, err := Decode(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return buf, nil
}

// Decode reads r as the type named by ext (".wav", ".mp3", ".ogg").
func Decode(r io.ReadSeeker, ext string) (*audio.IntBuffer, error) {
	switch strings.ToLower(ext) {
	case ".wav", ".wave":
		return decodeWAV(r)
	case ".mp3":
		return decodeMP3(r)
	case ".ogg", ".oga":
		return decodeVorbis(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
}

func decodeWAV(r io.ReadSeeker) (*audio.IntBuffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a PCM WAV file", ErrInvalid)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	buf.SourceBitDepth = int(dec.BitDepth)
	return buf, nil
}

// decodeMP3 reads the whole stream. The decoder always yields 16-bit
// little-endian stereo.
func decodeMP3(r io.Reader) (*audio.IntBuffer, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	words := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw[:2*len(words)]), binary.LittleEndian, words); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	data := make([]int, len(words))
	for i, w := range words {
		data[i] = int(w)
	}
	return &audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 2, SampleRate: dec.SampleRate()},
		SourceBitDepth: 16,
	}, nil
}

func decodeVorbis(r io.Reader) (*audio.IntBuffer, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return &audio.IntBuffer{
		Data:           Quantize(samples, vorbisDepth),
		Format:         &audio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		SourceBitDepth: vorbisDepth,
	}, nil
}

// Quantize converts normalized samples to depth-bit words, saturating at
// full scale.
func Quantize[F float32 | float64](x []F, depth int) []int {
	fs := float64(int64(1) << (depth - 1))
	lo, hi := -fs, fs-1
	out := make([]int, len(x))
	for i, v := range x {
		out[i] = int(math.Max(lo, math.Min(hi, math.Round(float64(v)*fs))))
	}
	return out
}

// Tone returns seconds of a sine at freq Hz whose RMS level is dbfs,
// identical on every channel.
func Tone(freq, dbfs float64, sampleRate, channels int, seconds float64, depth int) *audio.IntBuffer {
	frames := int(seconds * float64(sampleRate))
	amp := math.Sqrt2 * math.Pow(10, dbfs/20)
	x := make([]float64, frames*channels)
	for i := range frames {
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		for ch := range channels {
			x[i*channels+ch] = v
		}
	}
	return &audio.IntBuffer{
		Data:           Quantize(x, depth),
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: depth,
	}
}

// WriteWAV writes buf as PCM WAV at buf.SourceBitDepth (16 when unset).
func WriteWAV(path string, buf *audio.IntBuffer) (err error) {
	if buf == nil || buf.Format == nil {
		return fmt.Errorf("source: buffer without format")
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = 16
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("source: %w", cerr)
		}
	}()

	const pcm = 1
	enc := wav.NewEncoder(f, buf.Format.SampleRate, depth, buf.Format.NumChannels, pcm)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("source: write %s: %w", filepath.Base(path), err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("source: finish %s: %w", filepath.Base(path), err)
	}
	return nil
}
