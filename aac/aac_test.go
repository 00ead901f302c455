package aac

import (
	"bytes"
	"testing"
)

// buildADTSFrame builds one ADTS frame (7-byte header, no CRC) with the
// given sampling_frequency_index, channel_config, and payload.
func buildADTSFrame(sfIdx, channelCfg byte, payload []byte) []byte {
	frameLen := 7 + len(payload)
	hdr := make([]byte, 7)
	hdr[0] = 0xFF
	hdr[1] = 0xF1 // MPEG-4, no CRC, layer 00
	hdr[2] = (1 << 6) | (sfIdx << 2) | (channelCfg >> 2)
	hdr[3] = (channelCfg&0x03)<<6 | byte(frameLen>>11)&0x03
	hdr[4] = byte(frameLen >> 3)
	hdr[5] = byte(frameLen<<5) | 0x1F
	hdr[6] = 0xFC
	return append(hdr, payload...)
}

// TestScanner_ThreeFrames checks that three consecutive ADTS frames at
// 48000 Hz (frameDuration=1920) with base PTS=90000 yield PTS 90000,
// 91920, 93840.
func TestScanner_ThreeFrames(t *testing.T) {
	t.Parallel()
	sfIdx := byte(3) // 48000 Hz
	var buf []byte
	for i := 0; i < 3; i++ {
		buf = append(buf, buildADTSFrame(sfIdx, 2, []byte{byte(i), byte(i), byte(i)})...)
	}

	s := NewScanner()
	frames, err := s.Push(90000, buf)
	if err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	wantPTS := []int64{90000, 91920, 93840}
	for i, f := range frames {
		if f.PTS != wantPTS[i] {
			t.Errorf("frame %d: PTS = %d, want %d", i, f.PTS, wantPTS[i])
		}
	}
	if s.Config.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", s.Config.SampleRate)
	}
	if s.Config.FrameDur != 1920 {
		t.Errorf("FrameDur = %d, want 1920", s.Config.FrameDur)
	}
}

func TestScanner_OverflowAcrossCalls(t *testing.T) {
	t.Parallel()
	sfIdx := byte(3)
	frame1 := buildADTSFrame(sfIdx, 2, []byte{0xAA, 0xBB})
	frame2 := buildADTSFrame(sfIdx, 2, []byte{0xCC, 0xDD})

	s := NewScanner()
	split := len(frame1) + 2 // split partway into frame2
	buf := append(append([]byte{}, frame1...), frame2...)

	frames1, err := s.Push(90000, buf[:split])
	if err != nil {
		t.Fatalf("call 1: %v", err)
	}
	if len(frames1) != 1 {
		t.Fatalf("call 1: got %d frames, want 1", len(frames1))
	}

	frames2, err := s.Push(999999, buf[split:]) // bogus PTS; should be glued
	if err != nil {
		t.Fatalf("call 2: %v", err)
	}
	if len(frames2) != 1 {
		t.Fatalf("call 2: got %d frames, want 1", len(frames2))
	}
	if frames2[0].PTS != 91920 {
		t.Errorf("glued PTS = %d, want 91920", frames2[0].PTS)
	}
	if !bytes.Equal(frames2[0].Data, frame2) {
		t.Errorf("frame 2 data = %X, want %X", frames2[0].Data, frame2)
	}
}

func TestScanner_NonFatalOffsetError(t *testing.T) {
	t.Parallel()
	frame := buildADTSFrame(3, 2, []byte{0x01})
	garbage := []byte{0x11, 0x22, 0x33}
	buf := append(garbage, frame...)

	s := NewScanner()
	frames, err := s.Push(0, buf)
	if err == nil {
		t.Fatal("expected non-fatal error for non-zero offset")
	}
	nfe, ok := err.(*NonFatalError)
	if !ok {
		t.Fatalf("got error type %T, want *NonFatalError", err)
	}
	if nfe.Offset != len(garbage) {
		t.Errorf("Offset = %d, want %d", nfe.Offset, len(garbage))
	}
	if len(frames) != 1 {
		t.Errorf("got %d frames, want 1 (non-fatal errors still yield frames)", len(frames))
	}
}

func TestScanner_FatalNoSyncword(t *testing.T) {
	t.Parallel()
	s := NewScanner()
	_, err := s.Push(0, []byte{0x00, 0x01, 0x02, 0x03})
	if err != ErrNoADTSHeader {
		t.Errorf("got %v, want ErrNoADTSHeader", err)
	}
}
