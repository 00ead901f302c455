package annexb

import (
	"bytes"
	"testing"
)

func avcType(b byte) byte { return b & 0x1F }

func TestScanner_SingleBuffer(t *testing.T) {
	t.Parallel()
	data := []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0xAA, 0xBB, // SPS (4-byte start code)
		0x00, 0x00, 0x01, 0x68, 0xCC, // PPS (3-byte start code)
		0x00, 0x00, 0x00, 0x01, 0x65, 0xDD, 0xEE, 0xFF, // IDR
	}
	s := NewScanner(avcType)
	units := s.Push(data)

	if len(units) != 3 {
		t.Fatalf("got %d units, want 3", len(units))
	}
	wantTypes := []byte{7, 8, 5}
	wantData := [][]byte{{0x67, 0xAA, 0xBB}, {0x68, 0xCC}, {0x65, 0xDD, 0xEE, 0xFF}}
	for i, u := range units {
		if u.Type != wantTypes[i] {
			t.Errorf("unit %d: type = %d, want %d", i, u.Type, wantTypes[i])
		}
		if !bytes.Equal(u.Data, wantData[i]) {
			t.Errorf("unit %d: data = %X, want %X", i, u.Data, wantData[i])
		}
	}
}

func TestScanner_NoStartCode(t *testing.T) {
	t.Parallel()
	s := NewScanner(avcType)
	s.Push([]byte{0x00, 0x00, 0x00, 0x01, 0x67, 0xAA})
	more := s.Push([]byte{0xBB, 0xCC})
	if len(more) != 1 {
		t.Fatalf("got %d units, want 1", len(more))
	}
	want := []byte{0x67, 0xAA, 0xBB, 0xCC}
	if !bytes.Equal(more[0].Data, want) {
		t.Errorf("data = %X, want %X", more[0].Data, want)
	}
}

// TestScanner_StartCodeSplitAcrossCalls checks behavior when the 4-byte
// start code of an IDR NAL is split, byte 1 of the prefix landing in
// the first call.
func TestScanner_StartCodeSplitAcrossCalls(t *testing.T) {
	t.Parallel()
	s := NewScanner(avcType)

	first := []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0xAA, 0xBB, // SPS
		0x00, // first byte of the next start code
	}
	units1 := s.Push(first)
	if len(units1) != 1 {
		t.Fatalf("call 1: got %d units, want 1", len(units1))
	}
	if !bytes.Equal(units1[0].Data, []byte{0x67, 0xAA, 0xBB, 0x00}) {
		t.Fatalf("call 1: data = %X", units1[0].Data)
	}

	second := []byte{
		0x00, 0x00, 0x01, 0x65, 0xDD, 0xEE, // rest of start code + IDR
	}
	units2 := s.Push(second)
	if len(units2) != 2 {
		t.Fatalf("call 2: got %d units, want 2 (continuation + new)", len(units2))
	}
	// The SPS unit's trailing 0x00 byte (wrongly appended in call 1) must
	// have been stripped back off once the start code resolved.
	if !bytes.Equal(units2[0].Data, []byte{0x67, 0xAA, 0xBB}) {
		t.Errorf("stitched SPS data = %X, want 67AABB (trailing zero stripped)", units2[0].Data)
	}
	if units2[1].Type != 5 {
		t.Errorf("second unit type = %d, want 5 (IDR)", units2[1].Type)
	}
	if !bytes.Equal(units2[1].Data, []byte{0x65, 0xDD, 0xEE}) {
		t.Errorf("IDR data = %X, want 65DDEE", units2[1].Data)
	}
}

func TestScanner_StartCodeEndsOnLastByte(t *testing.T) {
	t.Parallel()
	s := NewScanner(avcType)
	first := []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0xAA, 0x00, 0x00, 0x01}
	units1 := s.Push(first)
	if len(units1) != 1 || !bytes.Equal(units1[0].Data, []byte{0x67, 0xAA}) {
		t.Fatalf("call 1: got %+v", units1)
	}

	second := []byte{0x65, 0xBB, 0xCC}
	units2 := s.Push(second)
	if len(units2) != 1 {
		t.Fatalf("call 2: got %d units, want 1", len(units2))
	}
	if units2[0].Type != 5 {
		t.Errorf("type = %d, want 5", units2[0].Type)
	}
	if !bytes.Equal(units2[0].Data, []byte{0x65, 0xBB, 0xCC}) {
		t.Errorf("data = %X, want 65BBCC", units2[0].Data)
	}
}

func TestScanner_Reset(t *testing.T) {
	t.Parallel()
	s := NewScanner(avcType)
	s.Push([]byte{0x00, 0x00, 0x00, 0x01, 0x67, 0xAA})
	s.Reset()
	if s.open != nil || s.state != 0 {
		t.Errorf("Reset did not clear state: open=%v state=%d", s.open, s.state)
	}
}
