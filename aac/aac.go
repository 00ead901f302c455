// Package aac scans ADTS-framed AAC audio out of a PES payload, carrying
// a trailing partial frame and the last emitted timestamp across calls
// so frame boundaries and timing stay correct when a frame straddles two
// PES packets.
package aac

import "github.com/pkg/errors"

// ErrNoADTSHeader is the fatal error returned when a PES payload contains
// no ADTS syncword at all.
var ErrNoADTSHeader = errors.New("aac: no ADTS header found in AAC PES")

// SampleRates is the ADTS sampling_frequency_index table (ISO 14496-3).
var SampleRates = [...]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350,
}

// Frame is one ADTS frame (header and payload together) with its
// presentation timestamp.
type Frame struct {
	Data []byte
	PTS  int64
}

// Config is the audio configuration learned from the first ADTS header
// seen on a track.
type Config struct {
	SampleRate   int
	ChannelCfg   int
	ObjectType   int
	FrameDur     int64 // 1024 * 90000 / SampleRate, at the 90kHz clock
	Initialized  bool
}

// Scanner carries the cross-call state for one audio track: the
// overflow bytes left over from the previous PES (a frame that didn't
// fully fit), the PTS last assigned to an emitted frame, and the track's
// learned configuration.
type Scanner struct {
	Config Config

	overflow []byte
	lastPTS  int64
	havePTS  bool
}

// NewScanner returns a Scanner with no configuration learned yet.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Reset clears all cross-call state. Called on resetInitSegment.
func (s *Scanner) Reset() {
	*s = Scanner{}
}

// NonFatalError is returned (never as the sole return value — Frames are
// still produced where possible) when the ADTS header was found but not
// at the start of the PES payload.
type NonFatalError struct {
	Offset int
}

func (e *NonFatalError) Error() string {
	return "aac: AAC PES did not start with ADTS header"
}

// Push scans pts-timestamped PES payload data for ADTS frames, gluing
// timing across the call boundary. It returns the frames found,
// a non-fatal error when the stream didn't start cleanly on an ADTS
// header (frames are still returned), or ErrNoADTSHeader (fatal, no
// frames) when no syncword is found anywhere in the buffer.
func (s *Scanner) Push(pts int64, data []byte) ([]Frame, error) {
	hadOverflow := len(s.overflow) > 0
	buf := data
	if hadOverflow {
		buf = append(append([]byte{}, s.overflow...), data...)
	}
	s.overflow = nil

	offset := findSync(buf, 0)
	if offset < 0 {
		return nil, ErrNoADTSHeader
	}

	var nonFatal error
	if offset != 0 {
		nonFatal = &NonFatalError{Offset: offset}
	}

	if !s.Config.Initialized {
		if err := s.initConfig(buf[offset:]); err != nil {
			return nil, err
		}
	}

	if hadOverflow && s.havePTS {
		glued := s.lastPTS + s.Config.FrameDur
		if abs64(glued-pts) > 1 {
			pts = glued
		}
	}

	var frames []Frame
	frameIndex := int64(0)
	for {
		if offset+5 >= len(buf) {
			break
		}
		if buf[offset] != 0xFF || buf[offset+1]&0xF0 != 0xF0 {
			break
		}
		frameLen, ok := adtsFrameLen(buf, offset)
		if !ok || offset+frameLen > len(buf) {
			break
		}

		frames = append(frames, Frame{
			Data: buf[offset : offset+frameLen],
			PTS:  pts + frameIndex*s.Config.FrameDur,
		})
		frameIndex++
		offset += frameLen
	}

	if offset < len(buf) {
		s.overflow = append([]byte{}, buf[offset:]...)
	}
	if len(frames) > 0 {
		s.lastPTS = frames[len(frames)-1].PTS
		s.havePTS = true
	}

	return frames, nonFatal
}

func (s *Scanner) initConfig(buf []byte) error {
	if len(buf) < 7 {
		return ErrNoADTSHeader
	}
	sampleRateIdx := (buf[2] >> 2) & 0x0F
	if int(sampleRateIdx) >= len(SampleRates) {
		return ErrNoADTSHeader
	}
	sampleRate := SampleRates[sampleRateIdx]
	channelCfg := int((buf[2]&0x01)<<2 | (buf[3]>>6)&0x03)
	objectType := int((buf[2]>>6)&0x03) + 1 // profile_ObjectType = MPEG-4 Audio Object Type

	s.Config = Config{
		SampleRate:  sampleRate,
		ChannelCfg:  channelCfg,
		ObjectType:  objectType,
		FrameDur:    int64(1024) * 90000 / int64(sampleRate),
		Initialized: true,
	}
	return nil
}

// findSync returns the offset of the first ADTS syncword at or after
// from, or -1 if none is found.
func findSync(buf []byte, from int) int {
	for i := from; i+1 < len(buf); i++ {
		if buf[i] == 0xFF && buf[i+1]&0xF0 == 0xF0 {
			return i
		}
	}
	return -1
}

func adtsFrameLen(buf []byte, offset int) (int, bool) {
	if offset+6 >= len(buf) {
		return 0, false
	}
	frameLen := int(buf[offset+3]&0x03)<<11 |
		int(buf[offset+4])<<3 |
		int(buf[offset+5]>>5)
	if frameLen < 7 {
		return 0, false
	}
	return frameLen, true
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
