package psi

import "testing"

// buildPAT constructs a minimal single-program PAT section starting at
// table_id (pointer_field already skipped), with program 1 mapped to
// pmtPID.
func buildPAT(pmtPID uint16) []byte {
	section := []byte{
		0x00,       // table_id
		0xB0, 0x0D, // section_syntax_indicator=1, section_length=13
		0x00, 0x01, // transport_stream_id
		0xC1,       // version/current_next
		0x00,       // section_number
		0x00,       // last_section_number
		0x00, 0x01, // program_number = 1
		byte(0xE0 | pmtPID>>8), byte(pmtPID), // reserved(3)+pmt_pid(13)
		0x00, 0x00, 0x00, 0x00, // CRC32 (unchecked)
	}
	return section
}

func TestParsePAT(t *testing.T) {
	t.Parallel()
	data := buildPAT(0x1001)
	pid, ok := ParsePAT(data)
	if !ok {
		t.Fatal("ParsePAT returned ok=false")
	}
	if pid != 0x1001 {
		t.Errorf("pmtPID = 0x%X, want 0x1001", pid)
	}
}

func TestParsePAT_TooShort(t *testing.T) {
	t.Parallel()
	if _, ok := ParsePAT([]byte{0x00, 0x01}); ok {
		t.Error("expected ok=false for short PAT")
	}
}

type esEntry struct {
	streamType byte
	pid        uint16
}

// buildPMT constructs a PMT section starting at table_id, with the given
// elementary stream entries and no program descriptors.
func buildPMT(entries []esEntry) []byte {
	var es []byte
	for _, e := range entries {
		es = append(es,
			e.streamType,
			byte(0xE0|e.pid>>8), byte(e.pid),
			0x00, 0x00, // ES_info_length = 0
		)
	}

	sectionLength := 13 + len(es) // bytes after section_length field: header(9) + es + CRC(4)
	section := []byte{
		0x02,
		byte(0xB0 | (sectionLength>>8)&0x0F), byte(sectionLength),
		0x00, 0x01, // program_number
		0xC1,       // version/current_next
		0x00,       // section_number
		0x00,       // last_section_number
		0xE1, 0x00, // reserved+PCR_PID
		0xF0, 0x00, // reserved+program_info_length=0
	}
	section = append(section, es...)
	section = append(section, 0x00, 0x00, 0x00, 0x00) // CRC32
	return section
}

func TestParsePMT(t *testing.T) {
	t.Parallel()
	data := buildPMT([]esEntry{
		{StreamTypeAVC, 0x0100},
		{StreamTypeAAC, 0x0101},
		{StreamTypeID3, 0x0102},
	})

	res, ok := ParsePMT(data)
	if !ok {
		t.Fatal("ParsePMT returned ok=false")
	}
	if !res.HasVideo || res.VideoPID != 0x0100 || res.VideoStreamType != StreamTypeAVC {
		t.Errorf("video: %+v", res)
	}
	if !res.HasAudio || res.AudioPID != 0x0101 {
		t.Errorf("audio: %+v", res)
	}
	if !res.HasID3 || res.ID3PID != 0x0102 {
		t.Errorf("id3: %+v", res)
	}
}

func TestParsePMT_FirstOccurrenceWins(t *testing.T) {
	t.Parallel()
	data := buildPMT([]esEntry{
		{StreamTypeAVC, 0x0100},
		{StreamTypeHEVC, 0x0200}, // duplicate video stream, ignored
		{StreamTypeAAC, 0x0101},
		{StreamTypeMPEGAudio1, 0x0103}, // duplicate audio stream, ignored
	})

	res, ok := ParsePMT(data)
	if !ok {
		t.Fatal("ParsePMT returned ok=false")
	}
	if res.VideoPID != 0x0100 || res.VideoStreamType != StreamTypeAVC {
		t.Errorf("video: %+v, want first entry (0x0100, AVC)", res)
	}
	if res.AudioPID != 0x0101 {
		t.Errorf("audio: %+v, want first entry (0x0101)", res)
	}
}

func TestParsePMT_TooShort(t *testing.T) {
	t.Parallel()
	if _, ok := ParsePMT([]byte{0x02, 0x01}); ok {
		t.Error("expected ok=false for short PMT")
	}
}
