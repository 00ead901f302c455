package avc

import "testing"

// sampleSPS is a real High-profile (profile_idc 100) 1280x720 SPS payload (NAL header
// included), captured from an encoder trace.
var sampleSPS = []byte{
	0x67, 0x64, 0x00, 0x1f, 0xac, 0xd9, 0x40, 0x50,
	0x05, 0xba, 0x10, 0x00, 0x00, 0x03, 0x00, 0x10,
	0x00, 0x00, 0x03, 0x03, 0xc0, 0xf1, 0x42, 0x99,
	0x60,
}

func TestNALType(t *testing.T) {
	t.Parallel()
	if got := NALType(0x67); got != NALSPS {
		t.Errorf("got %d, want %d", got, NALSPS)
	}
	if got := NALType(0x65); got != NALIDR {
		t.Errorf("got %d, want %d", got, NALIDR)
	}
}

func TestParseSPS_CodecString(t *testing.T) {
	t.Parallel()
	info, err := ParseSPS(sampleSPS)
	if err != nil {
		t.Fatal(err)
	}
	want := "avc1.64001f"
	if got := info.CodecString(); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if info.Width <= 0 || info.Height <= 0 {
		t.Errorf("expected positive dimensions, got %dx%d", info.Width, info.Height)
	}
}

func TestParseSPS_TooShort(t *testing.T) {
	t.Parallel()
	if _, err := ParseSPS([]byte{0x67, 0x64}); err != ErrSPSTooShort {
		t.Errorf("got %v, want ErrSPSTooShort", err)
	}
}

func TestIsKeySliceType(t *testing.T) {
	t.Parallel()
	for _, st := range []uint{2, 4, 7, 9} {
		if !IsKeySliceType(st) {
			t.Errorf("slice_type %d should be key", st)
		}
	}
	for _, st := range []uint{0, 1, 3, 5, 6, 8} {
		if IsKeySliceType(st) {
			t.Errorf("slice_type %d should not be key", st)
		}
	}
}
