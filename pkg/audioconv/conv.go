// Package audioconv turns recorded or received audio into mono 16 kHz
// float samples for speech recognition, and back into WAV for upload.
package audioconv

import (
	"bufio"
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
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const TargetRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	MaxSamples int
}

func DecodeFile(path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, filepath.Ext(path), opt)
}

// DecodeBytes decodes an in-memory clip, e.g. one received over the bus.
func DecodeBytes(b []byte, opt Options) ([]float32, error) {
	return Decode(bytes.NewReader(b), "", opt)
}

// Decode picks a decoder from the extension hint, or from the leading
// magic bytes when the hint is empty or unknown.
func Decode(r io.ReadSeeker, hint string, opt Options) ([]float32, error) {
	var (
		x   []float32
		err error
	)
	switch kind := sniff(r, hint); kind {
	case "wav":
		x, err = decodeWAV(r)
	case "mp3":
		x, err = decodeMP3(r)
	case "ogg":
		x, err = decodeOgg(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, hint)
	}
	if err != nil {
		return nil, err
	}
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x, nil
}

func sniff(r io.ReadSeeker, hint string) string {
	switch strings.ToLower(strings.TrimPrefix(hint, ".")) {
	case "wav":
		return "wav"
	case "mp3":
		return "mp3"
	case "ogg", "oga", "opus":
		return "ogg"
	}

	magic, _ := bufio.NewReader(r).Peek(4)
	_, _ = r.Seek(0, io.SeekStart)
	switch {
	case string(magic) == "RIFF":
		return "wav"
	case string(magic) == "OggS":
		return "ogg"
	case len(magic) >= 3 && string(magic[:3]) == "ID3",
		len(magic) >= 2 && magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		return "mp3"
	}
	return ""
}

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if pb == nil || len(pb.Data) == 0 {
		return nil, errors.New("empty wav")
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	x := intsToFloat32(pb.Data, bd)

	ch, sr := 1, 44100
	if pb.Format != nil {
		ch = max(pb.Format.NumChannels, 1)
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	return resample(downmix(x, ch), sr, TargetRate), nil
}

func decodeMP3(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(&raw, binary.LittleEndian, &ints); err != nil {
		return nil, err
	}

	// go-mp3 always yields 16-bit stereo
	x := downmix(int16sToFloat32(ints), 2)
	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	return resample(x, sr, TargetRate), nil
}

// decodeOgg tries Vorbis first and Opus second.
func decodeOgg(r io.ReadSeeker) ([]float32, error) {
	x, verr := decodeVorbis(r)
	if verr == nil {
		return x, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	x, oerr := decodeOpus(r)
	if oerr != nil {
		return nil, fmt.Errorf("ogg: vorbis: %v; opus: %w", verr, oerr)
	}
	return x, nil
}

func decodeVorbis(r io.Reader) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid ogg/vorbis stream")
	}
	return resample(downmix(pcm, format.Channels), format.SampleRate, TargetRate), nil
}

func decodeOpus(r io.ReadSeeker) ([]float32, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	ch := max(dec.ChannelCount(), 1)

	// opus always decodes at 48 kHz
	var (
		pcm []float32
		buf = make([]int16, 48_000*ch/2)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, int16sToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(pcm) == 0 {
		return nil, errors.New("empty opus stream")
	}
	return resample(downmix(pcm, ch), 48000, TargetRate), nil
}

// EncodeWAV writes mono 16-bit PCM.
func EncodeWAV(w io.WriteSeeker, pcm []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)

	data := make([]int, len(pcm))
	for i, v := range pcm {
		data[i] = int(math.Round(clamp(float64(v), -1, 1) * 32767))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}

// WAVBytes is EncodeWAV into memory.
func WAVBytes(pcm []float32, sampleRate int) ([]byte, error) {
	var f memFile
	if err := EncodeWAV(&f, pcm, sampleRate); err != nil {
		return nil, err
	}
	return f.buf, nil
}

// helpers

func intsToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

func int16sToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += float64(in[i*channels+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resample(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := range out {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i0+1]*a
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

// memFile is an in-memory io.WriteSeeker for the WAV encoder, which seeks
// back to patch the header sizes.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	n := copy(m.buf[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = len(m.buf)
	default:
		return 0, errors.New("invalid whence")
	}
	pos := base + int(offset)
	if pos < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = pos
	return int64(pos), nil
}
