// Package psi parses single-program PAT and PMT sections: just enough of
// ISO/IEC 13818-1 Program Specific Information to learn the PMT PID and
// the elementary PIDs/stream types of one program.
package psi

// Video and audio stream_type values recognized in the PMT, per
// ISO/IEC 13818-1 Table 2-34 and the ATSC/DVB registered values used for
// AAC and ID3-carrying streams.
const (
	StreamTypeMPEGAudio1 = 0x03
	StreamTypeMPEGAudio2 = 0x04
	StreamTypeID3        = 0x15
	StreamTypeAVC        = 0x1B
	StreamTypeAAC        = 0x0F
	StreamTypeHEVC       = 0x24
)

// ParsePAT reads the first program's PMT PID out of a PAT section. data[0]
// is table_id; any pointer_field has already been skipped by the caller.
// Multi-program PATs are ignored beyond the first program entry.
func ParsePAT(data []byte) (pmtPID uint16, ok bool) {
	if len(data) < 12 {
		return 0, false
	}
	pmtPID = uint16(data[10]&0x1F)<<8 | uint16(data[11])
	return pmtPID, true
}

// Result is the set of elementary PIDs and the video stream type learned
// from a PMT section, for single-program streams.
type Result struct {
	VideoPID        uint16
	VideoStreamType byte
	AudioPID        uint16
	AudioStreamType byte
	ID3PID          uint16

	HasVideo bool
	HasAudio bool
	HasID3   bool
}

// ParsePMT reads elementary stream entries out of a PMT section. data[0]
// is table_id; any pointer_field has already been skipped by the caller.
// The first occurrence of each recognized stream_type wins; later
// duplicates are ignored.
func ParsePMT(data []byte) (Result, bool) {
	if len(data) < 12 {
		return Result{}, false
	}

	sectionLength := int(data[1]&0x0F)<<8 | int(data[2])
	tableEnd := 3 + sectionLength - 4
	if tableEnd > len(data) {
		tableEnd = len(data)
	}

	programInfoLength := int(data[10]&0x0F)<<8 | int(data[11])
	off := 12 + programInfoLength

	var res Result
	for off+5 <= tableEnd && off+5 <= len(data) {
		streamType := data[off]
		pid := uint16(data[off+1]&0x1F)<<8 | uint16(data[off+2])
		esInfoLength := int(data[off+3]&0x0F)<<8 | int(data[off+4])

		switch streamType {
		case StreamTypeAVC, StreamTypeHEVC:
			if !res.HasVideo {
				res.VideoPID = pid
				res.VideoStreamType = streamType
				res.HasVideo = true
			}
		case StreamTypeAAC, StreamTypeMPEGAudio1, StreamTypeMPEGAudio2:
			if !res.HasAudio {
				res.AudioPID = pid
				res.AudioStreamType = streamType
				res.HasAudio = true
			}
		case StreamTypeID3:
			if !res.HasID3 {
				res.ID3PID = pid
				res.HasID3 = true
			}
		}

		off += 5 + esInfoLength
	}

	return res, true
}
