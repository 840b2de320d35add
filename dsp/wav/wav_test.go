package wav

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// buildWAV assembles a WAV stream by hand for decoder edge cases.
func buildWAV(channels, rate, bits int, chunks ...[]byte) []byte {
	var body bytes.Buffer
	body.WriteString("fmt ")
	binary.Write(&body, binary.LittleEndian, uint32(16))
	binary.Write(&body, binary.LittleEndian, uint16(1))
	binary.Write(&body, binary.LittleEndian, uint16(channels))
	binary.Write(&body, binary.LittleEndian, uint32(rate))
	binary.Write(&body, binary.LittleEndian, uint32(rate*channels*bits/8))
	binary.Write(&body, binary.LittleEndian, uint16(channels*bits/8))
	binary.Write(&body, binary.LittleEndian, uint16(bits))
	for _, c := range chunks {
		body.Write(c)
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(4+body.Len()))
	out.WriteString("WAVE")
	out.Write(body.Bytes())
	return out.Bytes()
}

func dataChunk(samples ...int16) []byte {
	var b bytes.Buffer
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(samples)*2))
	for _, s := range samples {
		binary.Write(&b, binary.LittleEndian, s)
	}
	return b.Bytes()
}

func TestEncodeDecode_Roundtrip(t *testing.T) {
	in := []float64{0, 0.5, -0.5, 0.25, -1, 1, 0.123}

	var buf bytes.Buffer
	if err := Encode(&buf, in, 44100); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	out, rate, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rate != 44100 {
		t.Errorf("rate: got %d, want 44100", rate)
	}
	if len(out) != len(in) {
		t.Fatalf("length: got %d, want %d", len(out), len(in))
	}

	tol := 1.0 / 32767
	for i := range in {
		if math.Abs(out[i]-in[i]) > tol {
			t.Errorf("sample %d: got %g, want %g within %g", i, out[i], in[i], tol)
		}
	}
}

func TestEncode_Header(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, []float64{0, 0, 0}, 44100); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	b := buf.Bytes()
	if len(b) != 50 {
		t.Fatalf("stream length: got %d, want 50", len(b))
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint32(b[4:8]); got != 42 {
		t.Errorf("RIFF size: got %d, want 42", got)
	}
	if string(b[12:16]) != "fmt " {
		t.Fatal("missing fmt chunk")
	}
	if got := binary.LittleEndian.Uint32(b[16:20]); got != 16 {
		t.Errorf("fmt size: got %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint16(b[20:22]); got != 1 {
		t.Errorf("format: got %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(b[22:24]); got != 1 {
		t.Errorf("channels: got %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(b[24:28]); got != 44100 {
		t.Errorf("rate: got %d, want 44100", got)
	}
	if got := binary.LittleEndian.Uint32(b[28:32]); got != 88200 {
		t.Errorf("byte rate: got %d, want 88200", got)
	}
	if got := binary.LittleEndian.Uint16(b[32:34]); got != 2 {
		t.Errorf("block align: got %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint16(b[34:36]); got != 16 {
		t.Errorf("bits: got %d, want 16", got)
	}
	if string(b[36:40]) != "data" {
		t.Fatal("missing data chunk")
	}
	if got := binary.LittleEndian.Uint32(b[40:44]); got != 6 {
		t.Errorf("data size: got %d, want 6", got)
	}
}

func TestEncode_ClampsOutOfRange(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, []float64{1.5, -2}, 8000); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	out, _, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out[0] != 1 {
		t.Errorf("sample 0: got %g, want 1", out[0])
	}
	if out[1] != -1 {
		t.Errorf("sample 1: got %g, want -1", out[1])
	}
}

func TestEncode_InvalidRate(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, []float64{0}, 0); err == nil {
		t.Error("expected error for zero rate, got nil")
	}
}

func TestDecode_StereoDownmix(t *testing.T) {
	stream := buildWAV(2, 8000, 16, dataChunk(32767, 0, -32767, 32767))

	out, rate, err := Decode(bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rate != 8000 {
		t.Errorf("rate: got %d, want 8000", rate)
	}
	if len(out) != 2 {
		t.Fatalf("frames: got %d, want 2", len(out))
	}
	if !almostEqual(out[0], 0.5) {
		t.Errorf("frame 0: got %g, want 0.5", out[0])
	}
	if !almostEqual(out[1], 0) {
		t.Errorf("frame 1: got %g, want 0", out[1])
	}
}

func TestDecode_SkipsUnknownChunks(t *testing.T) {
	// An odd-sized LIST chunk carries a padding byte before data.
	list := append([]byte("LIST"), 3, 0, 0, 0, 'a', 'b', 'c', 0)
	stream := buildWAV(1, 8000, 16, list, dataChunk(16384))

	out, _, err := Decode(bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("frames: got %d, want 1", len(out))
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		stream []byte
	}{
		{"not riff", []byte("JUNK\x00\x00\x00\x00WAVEfmt ")},
		{"short header", []byte("RIFF")},
		{"data before fmt", func() []byte {
			var out bytes.Buffer
			out.WriteString("RIFF")
			binary.Write(&out, binary.LittleEndian, uint32(16))
			out.WriteString("WAVE")
			out.Write(dataChunk(0))
			return out.Bytes()
		}()},
		{"unsupported bits", buildWAV(1, 8000, 8, dataChunk(0))},
		{"zero channels", buildWAV(0, 8000, 16, dataChunk(0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode(bytes.NewReader(tt.stream)); err == nil {
				t.Error("expected decode error, got nil")
			}
		})
	}
}

func TestEncodeFileDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	in := []float64{0.1, -0.2, 0.3}

	if err := EncodeFile(path, in, 22050); err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat output: %v", err)
	}

	out, rate, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if rate != 22050 {
		t.Errorf("rate: got %d, want 22050", rate)
	}
	if len(out) != len(in) {
		t.Fatalf("length: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1.0/32767 {
			t.Errorf("sample %d: got %g, want %g", i, out[i], in[i])
		}
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-12
}
