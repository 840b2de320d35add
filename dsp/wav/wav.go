// Package wav encodes and decodes 16-bit PCM WAV audio.
package wav

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	pcmFormat     = 1
	bitsPerSample = 16
	fullScale     = 32767
)

// Encode writes samples as mono 16-bit PCM WAV. Samples are clamped to
// [-1, 1] before quantization.
func Encode(w io.Writer, samples []float64, rate int) error {
	if rate <= 0 {
		return fmt.Errorf("wav: sample rate must be > 0: %d", rate)
	}

	bw := bufio.NewWriter(w)
	writeHeader(bw, rate, len(samples)*bitsPerSample/8)

	var b [2]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint16(b[:], uint16(pcm16(s)))
		bw.Write(b[:])
	}
	return bw.Flush()
}

// EncodeFile writes samples to path, creating or truncating the file.
func EncodeFile(path string, samples []float64, rate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, samples, rate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Decode reads a 16-bit PCM WAV stream, downmixing multichannel audio
// to mono by averaging. It returns the samples and the sample rate.
func Decode(r io.Reader) ([]float64, int, error) {
	br := bufio.NewReader(r)

	var riff [12]byte
	if _, err := io.ReadFull(br, riff[:]); err != nil {
		return nil, 0, fmt.Errorf("wav: short header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("wav: not a RIFF/WAVE stream")
	}

	var rate, channels int
	haveFmt := false

	for {
		var ch [8]byte
		if _, err := io.ReadFull(br, ch[:]); err != nil {
			return nil, 0, fmt.Errorf("wav: truncated chunk header: %w", err)
		}
		id := string(ch[0:4])
		size := int(binary.LittleEndian.Uint32(ch[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("wav: fmt chunk too small: %d", size)
			}
			var f [16]byte
			if _, err := io.ReadFull(br, f[:]); err != nil {
				return nil, 0, fmt.Errorf("wav: truncated fmt chunk: %w", err)
			}
			if format := binary.LittleEndian.Uint16(f[0:2]); format != pcmFormat {
				return nil, 0, fmt.Errorf("wav: unsupported format %d, want PCM", format)
			}
			channels = int(binary.LittleEndian.Uint16(f[2:4]))
			rate = int(binary.LittleEndian.Uint32(f[4:8]))
			if bits := binary.LittleEndian.Uint16(f[14:16]); bits != bitsPerSample {
				return nil, 0, fmt.Errorf("wav: unsupported bit depth %d, want %d", bits, bitsPerSample)
			}
			if channels <= 0 || rate <= 0 {
				return nil, 0, fmt.Errorf("wav: invalid fmt chunk: channels=%d rate=%d", channels, rate)
			}
			haveFmt = true
			if err := discard(br, size-16); err != nil {
				return nil, 0, err
			}
		case "data":
			if !haveFmt {
				return nil, 0, fmt.Errorf("wav: data chunk before fmt chunk")
			}
			return readData(br, size, channels, rate)
		default:
			// Skip unknown chunks, honoring the RIFF padding byte.
			if size%2 == 1 {
				size++
			}
			if err := discard(br, size); err != nil {
				return nil, 0, err
			}
		}
	}
}

// DecodeFile reads a 16-bit PCM WAV file.
func DecodeFile(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return Decode(f)
}

func readData(r io.Reader, size, channels, rate int) ([]float64, int, error) {
	frameBytes := channels * bitsPerSample / 8
	frames := size / frameBytes
	samples := make([]float64, frames)

	buf := make([]byte, frameBytes)
	for i := 0; i < frames; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, 0, fmt.Errorf("wav: truncated data chunk: %w", err)
		}
		sum := 0.0
		for c := 0; c < channels; c++ {
			v := int16(binary.LittleEndian.Uint16(buf[c*2:]))
			sum += float64(v) / fullScale
		}
		samples[i] = sum / float64(channels)
	}
	return samples, rate, nil
}

func writeHeader(w *bufio.Writer, rate, dataSize int) {
	byteRate := rate * bitsPerSample / 8
	blockAlign := bitsPerSample / 8

	w.WriteString("RIFF")
	binary.Write(w, binary.LittleEndian, uint32(36+dataSize))
	w.WriteString("WAVE")
	w.WriteString("fmt ")
	binary.Write(w, binary.LittleEndian, uint32(16))
	binary.Write(w, binary.LittleEndian, uint16(pcmFormat))
	binary.Write(w, binary.LittleEndian, uint16(1)) // mono
	binary.Write(w, binary.LittleEndian, uint32(rate))
	binary.Write(w, binary.LittleEndian, uint32(byteRate))
	binary.Write(w, binary.LittleEndian, uint16(blockAlign))
	binary.Write(w, binary.LittleEndian, uint16(bitsPerSample))
	w.WriteString("data")
	binary.Write(w, binary.LittleEndian, uint32(dataSize))
}

func discard(r *bufio.Reader, n int) error {
	if n <= 0 {
		return nil
	}
	if _, err := r.Discard(n); err != nil {
		return fmt.Errorf("wav: skipping chunk: %w", err)
	}
	return nil
}

func pcm16(x float64) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	return int16(math.Round(x * fullScale))
}
