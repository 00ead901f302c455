// Package mpegaudio scans MPEG-1/2 Layer II/III audio frames out of a
// PES payload. Frames are self-delimited by their own header fields, so
// unlike ADTS no overflow carry is needed between PES packets.
package mpegaudio

import "github.com/pkg/errors"

// ErrNoFrameHeader is returned when no valid MPEG audio frame header is
// found anywhere in the buffer.
var ErrNoFrameHeader = errors.New("mpegaudio: no frame header found")

var bitrateTable = map[int]map[int][]int{
	1: { // MPEG-1
		1: {0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448},
		2: {0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384},
		3: {0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320},
	},
	2: { // MPEG-2 / 2.5
		1: {0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256},
		2: {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
		3: {0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
	},
}

var sampleRateTable = map[byte][]int{
	0x3: {44100, 48000, 32000}, // MPEG-1 (version bits 11)
	0x2: {22050, 24000, 16000}, // MPEG-2 (version bits 10)
	0x0: {11025, 12000, 8000},  // MPEG-2.5 (version bits 00)
}

// Frame is one MPEG audio frame with its presentation timestamp.
type Frame struct {
	Data []byte
	PTS  int64
}

// Config is the audio configuration learned from the first frame header
// seen on a track.
type Config struct {
	SampleRate  int
	Channels    int
	Layer       int
	FrameDur    int64 // samples-per-frame * 90000 / SampleRate
	Initialized bool
}

// Scanner scans successive MPEG audio frames from PES payloads.
type Scanner struct {
	Config Config
}

// NewScanner returns a Scanner with no configuration learned yet.
func NewScanner() *Scanner { return &Scanner{} }

// Reset clears the learned configuration. Called on resetInitSegment.
func (s *Scanner) Reset() { *s = Scanner{} }

// Push scans pts-timestamped PES payload data for MPEG audio frames.
func (s *Scanner) Push(pts int64, data []byte) ([]Frame, error) {
	offset := 0
	var frames []Frame
	frameIndex := int64(0)
	found := false

	for offset+4 <= len(data) {
		hdr, length, ok := parseHeader(data[offset:])
		if !ok {
			offset++
			continue
		}
		found = true

		if !s.Config.Initialized {
			s.Config = Config{
				SampleRate:  hdr.sampleRate,
				Channels:    hdr.channels,
				Layer:       hdr.layer,
				FrameDur:    int64(hdr.samplesPerFrame) * 90000 / int64(hdr.sampleRate),
				Initialized: true,
			}
		}

		if offset+length > len(data) {
			break
		}

		frames = append(frames, Frame{
			Data: data[offset : offset+length],
			PTS:  pts + frameIndex*s.Config.FrameDur,
		})
		frameIndex++
		offset += length
	}

	if !found {
		return nil, ErrNoFrameHeader
	}
	return frames, nil
}

type header struct {
	sampleRate      int
	channels        int
	layer           int
	samplesPerFrame int
}

func parseHeader(b []byte) (header, int, bool) {
	if len(b) < 4 {
		return header{}, 0, false
	}
	if b[0] != 0xFF || b[1]&0xE0 != 0xE0 {
		return header{}, 0, false
	}

	versionBits := (b[1] >> 3) & 0x03
	layerBits := (b[1] >> 1) & 0x03
	if layerBits == 0 {
		return header{}, 0, false
	}
	layer := 4 - int(layerBits) // 11->I(1), 10->II(2), 01->III(3)

	bitrateIdx := (b[2] >> 4) & 0x0F
	if bitrateIdx == 0 || bitrateIdx == 0x0F {
		return header{}, 0, false
	}
	sampleRateIdx := (b[2] >> 2) & 0x03
	if sampleRateIdx == 0x03 {
		return header{}, 0, false
	}
	padding := (b[2] >> 1) & 0x01
	channelMode := (b[3] >> 6) & 0x03

	var versionKey byte
	switch versionBits {
	case 0x03:
		versionKey = 0x3
	case 0x02:
		versionKey = 0x2
	case 0x00:
		versionKey = 0x0
	default:
		return header{}, 0, false
	}

	rates, ok := sampleRateTable[versionKey]
	if !ok || int(sampleRateIdx) >= len(rates) {
		return header{}, 0, false
	}
	sampleRate := rates[sampleRateIdx]

	bitrateGroup := 1
	if versionBits != 0x03 {
		bitrateGroup = 2
	}
	bitrates, ok := bitrateTable[bitrateGroup][layer]
	if !ok || int(bitrateIdx) >= len(bitrates) {
		return header{}, 0, false
	}
	bitrateKbps := bitrates[bitrateIdx]
	if bitrateKbps == 0 {
		return header{}, 0, false
	}

	channels := 2
	if channelMode == 3 {
		channels = 1
	}

	var samplesPerFrame, length int
	switch layer {
	case 1:
		samplesPerFrame = 384
		length = (12*bitrateKbps*1000/sampleRate + int(padding)) * 4
	case 2:
		samplesPerFrame = 1152
		length = 144*bitrateKbps*1000/sampleRate + int(padding)
	default: // Layer III
		if versionBits == 0x03 {
			samplesPerFrame = 1152
			length = 144*bitrateKbps*1000/sampleRate + int(padding)
		} else {
			samplesPerFrame = 576
			length = 72*bitrateKbps*1000/sampleRate + int(padding)
		}
	}

	if length < 4 {
		return header{}, 0, false
	}

	return header{
		sampleRate:      sampleRate,
		channels:        channels,
		layer:           layer,
		samplesPerFrame: samplesPerFrame,
	}, length, true
}
