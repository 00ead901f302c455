package tsdemux

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/driftline/tsdemux/aac"
	"github.com/driftline/tsdemux/annexb"
	"github.com/driftline/tsdemux/avc"
	"github.com/driftline/tsdemux/hevc"
	"github.com/driftline/tsdemux/mpegaudio"
	"github.com/driftline/tsdemux/psi"
	"github.com/driftline/tsdemux/remux"
	"github.com/driftline/tsdemux/track"
)

const packetSize = 188

const (
	pidPAT  = 0x0000
	pidSDT  = 17
	pidNull = 0x1FFF
)

// Config holds the options the core recognizes.
type Config struct {
	// ForceKeyFrameOnDiscontinuity drops an HEVC access unit that carries
	// no keyframe NAL when the track's SPS has not yet been seen.
	ForceKeyFrameOnDiscontinuity bool
}

// Option configures a Demuxer at construction time.
type Option func(*Demuxer)

// WithLogger overrides the demuxer's diagnostic logger, used for PTS/DTS
// drift warnings. Parsing errors go to the Observer, not the logger.
// Defaults to logrus's standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Demuxer) { d.log = log }
}

// accumulator holds the payload slices of a single PID's in-progress PES
// packet, views into the caller's buffer, valid for the duration of one
// Push call.
type accumulator struct {
	slices [][]byte
	size   int
}

func (a *accumulator) add(payload []byte) {
	a.slices = append(a.slices, payload)
	a.size += len(payload)
}

func (a *accumulator) reset() {
	a.slices = nil
	a.size = 0
}

func (a *accumulator) empty() bool { return a.size == 0 }

// Demuxer is the TS packet scanner, PID dispatcher, and codec-parser
// driver. It is single-threaded and cooperative: Push, ResetInitSegment,
// ResetTimeStamp, SetDecryptData, and Destroy must run on the same
// goroutine, serialized by the caller.
type Demuxer struct {
	observer      remux.Observer
	remuxer       remux.Remuxer
	config        Config
	typeSupported map[string]bool

	log logrus.FieldLogger

	pmtPID         uint16
	pmtKnown       bool
	unknownPIDSeen bool

	videoTrack *track.Video
	audioTrack *track.Audio
	id3Track   *track.ID3
	textTrack  *track.Text

	videoAcc accumulator
	audioAcc accumulator
	id3Acc   accumulator

	nals *annexb.Scanner

	avcSample *track.VideoSample
	spsFound  bool
	audFound  bool

	// openVideoUnit is the NAL unit object that was still open (might grow
	// or be corrected) when the last Push call returned. The annexb
	// scanner reports it again, in place, at the start of the next call's
	// units, so handlers compare by pointer to patch the already-recorded
	// copy instead of appending a duplicate.
	openVideoUnit *annexb.NALUnit

	hevcGroup         []track.NALUnit
	hevcGroupKey      bool
	hevcGroupLen      int
	hevcGroupHasSlice bool

	aacScanner  *aac.Scanner
	mpegScanner *mpegaudio.Scanner

	lastCC     uint8
	haveLastCC bool

	fatal bool
}

// NewDemuxer constructs a Demuxer and runs the equivalent of an initial
// ResetInitSegment so its tracks are ready to receive packets.
func NewDemuxer(observer remux.Observer, remuxer remux.Remuxer, config Config, typeSupported map[string]bool, opts ...Option) *Demuxer {
	d := &Demuxer{
		observer:      observer,
		remuxer:       remuxer,
		config:        config,
		typeSupported: typeSupported,
		log:           logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.ResetInitSegment(nil, "", "", 0)
	return d
}

// Probe reports whether buffer looks like a TS stream: three 0x47 sync
// bytes spaced exactly 188 bytes apart, found within the first
// min(1000, len(buffer)-3*188) bytes.
func Probe(buffer []byte) bool {
	return syncOffset(buffer) >= 0
}

func syncOffset(buffer []byte) int {
	limit := len(buffer) - 3*packetSize
	if limit > 1000 {
		limit = 1000
	}
	for i := 0; i <= limit; i++ {
		if buffer[i] == 0x47 && buffer[i+packetSize] == 0x47 && buffer[i+2*packetSize] == 0x47 {
			return i
		}
	}
	return -1
}

// Push scans buffer for complete 188-byte TS packets and dispatches each
// by PID: PAT/PMT discovery, PES reassembly, and codec parsing feed the
// four tracks, which are handed to the Remuxer once before Push returns.
//
// audioCodecHint and videoCodecHint are opaque preferences that the core
// does not inspect; the HE-AAC/LC-AAC downmix decision reads only
// typeSupported. cc is the caller's per-fragment
// continuity counter, used to derive the contiguous flag passed to the
// remuxer. level and sn (quality level, sequence number) and duration
// are accepted for interface parity with the caller's other fragment
// metadata but do not affect parsing.
func (d *Demuxer) Push(buffer []byte, audioCodecHint, videoCodecHint string, timeOffset int64, cc uint8, level int, sn int64, duration int64) {
	off := syncOffset(buffer)
	if off < 0 {
		// Too short for the three-packet probe: accept a buffer that
		// itself starts on a sync byte.
		if len(buffer) < packetSize || buffer[0] != 0x47 {
			return
		}
		off = 0
	}

	d.fatal = false
	usableLen := len(buffer) - (len(buffer)+off)%packetSize

	for start := off; start+packetSize <= usableLen; start += packetSize {
		if buffer[start] != 0x47 {
			d.triggerParsingError(false, "sync byte missing at offset %d", start)
			continue
		}

		b1, b2, b3 := buffer[start+1], buffer[start+2], buffer[start+3]
		pusi := b1&0x40 != 0
		pid := uint16(b1&0x1F)<<8 | uint16(b2)
		afc := (b3 >> 4) & 3

		payloadStart := start + 4
		if afc > 1 {
			payloadStart = start + 5 + int(buffer[start+4])
			if payloadStart == start+packetSize {
				continue
			}
		}
		if payloadStart > start+packetSize {
			continue
		}
		payload := buffer[payloadStart : start+packetSize]

		switch pid {
		case pidPAT:
			d.handlePAT(payload, pusi)

		case pidSDT, pidNull:

		case d.pmtPID:
			if rewindTo, ok := d.handlePMT(payload, pusi, off); ok {
				start = rewindTo
			}

		case uint16(d.videoTrack.PID):
			d.dispatchAccumulator(&d.videoAcc, payload, pusi, d.flushVideo)

		case uint16(d.audioTrack.PID):
			d.dispatchAccumulator(&d.audioAcc, payload, pusi, d.flushAudio)

		case uint16(d.id3Track.PID):
			d.dispatchAccumulator(&d.id3Acc, payload, pusi, d.flushID3)

		default:
			d.unknownPIDSeen = true
		}

		if d.fatal {
			return
		}
	}

	d.flushVideo()
	d.flushAudio()
	d.flushID3()
	if d.fatal {
		return
	}

	contiguous := d.haveLastCC && cc == d.lastCC
	d.lastCC = cc
	d.haveLastCC = true

	d.remuxer.Remux(d.audioTrack, d.videoTrack, d.id3Track, d.textTrack, timeOffset, contiguous, true)
}

// handlePAT parses the PAT carried in a PUSI packet's payload and learns
// the PMT PID. Continuation packets of a multi-packet PAT (PUSI false)
// are ignored; a PAT this small never needs one in practice.
func (d *Demuxer) handlePAT(payload []byte, pusi bool) {
	if !pusi || len(payload) == 0 {
		return
	}
	skip := 1 + int(payload[0])
	if skip >= len(payload) {
		return
	}
	if pmtPID, ok := psi.ParsePAT(payload[skip:]); ok {
		d.pmtPID = pmtPID
	}
}

// handlePMT parses the PMT and, on the first successful parse, learns
// the elementary PIDs. If unknown PIDs were deferred while the PMT was
// still unknown, it reports a rewind point (syncOffset-packetSize, so the
// scanner loop's increment lands back on syncOffset).
func (d *Demuxer) handlePMT(payload []byte, pusi bool, syncOff int) (int, bool) {
	if !pusi || len(payload) == 0 {
		return 0, false
	}
	skip := 1 + int(payload[0])
	if skip >= len(payload) {
		return 0, false
	}

	res, ok := psi.ParsePMT(payload[skip:])
	if !ok {
		return 0, false
	}

	first := !d.pmtKnown
	d.pmtKnown = true

	if res.HasVideo {
		d.videoTrack.PID = int32(res.VideoPID)
		d.videoTrack.StreamType = res.VideoStreamType
		if res.VideoStreamType == psi.StreamTypeHEVC {
			d.nals.SetTypeFunc(hevc.NALType)
		} else {
			d.nals.SetTypeFunc(avc.NALType)
		}
	}
	if res.HasAudio {
		d.audioTrack.PID = int32(res.AudioPID)
		d.audioTrack.StreamType = res.AudioStreamType
	}
	if res.HasID3 {
		d.id3Track.PID = int32(res.ID3PID)
	}

	if first && d.unknownPIDSeen {
		d.unknownPIDSeen = false
		return syncOff - packetSize, true
	}
	return 0, false
}

// dispatchAccumulator closes and flushes the accumulator on a new PES
// (payload_unit_start_indicator) before appending this packet's payload,
// then always appends — the new PES's first fragment belongs in the
// fresh accumulator.
func (d *Demuxer) dispatchAccumulator(acc *accumulator, payload []byte, pusi bool, flush func()) {
	if pusi && !acc.empty() {
		flush()
	}
	acc.add(payload)
}

// ResetInitSegment sets a fresh Track quadruplet and clears every piece
// of cross-call scanner/overflow/in-progress-AU state: the NAL scanner,
// the in-progress access unit, and the audio scanners. Unlike the buggy
// original this spec was distilled from, it also clears the NAL scanner's
// state explicitly, so a discontinuity can never splice a stale start
// code onto the next fragment.
func (d *Demuxer) ResetInitSegment(initSegment []byte, audioCodecHint, videoCodecHint string, duration int64) {
	d.videoTrack = track.NewVideo()
	d.audioTrack = track.NewAudio()
	d.id3Track = track.NewID3()
	d.textTrack = track.NewText()

	d.videoAcc.reset()
	d.audioAcc.reset()
	d.id3Acc.reset()

	if d.nals == nil {
		d.nals = annexb.NewScanner(nil)
	} else {
		d.nals.Reset()
	}
	d.avcSample = nil
	d.spsFound = false
	d.audFound = false
	d.openVideoUnit = nil
	d.hevcGroup = nil
	d.hevcGroupKey = false
	d.hevcGroupLen = 0
	d.hevcGroupHasSlice = false

	if d.aacScanner == nil {
		d.aacScanner = aac.NewScanner()
	} else {
		d.aacScanner.Reset()
	}
	if d.mpegScanner == nil {
		d.mpegScanner = mpegaudio.NewScanner()
	} else {
		d.mpegScanner.Reset()
	}

	d.pmtPID = 0
	d.pmtKnown = false
	d.unknownPIDSeen = false
}

// ResetTimeStamp clears the continuity-counter discontinuity tracking, so
// the next Push does not treat its first packet as contiguous with
// whatever preceded the reset.
func (d *Demuxer) ResetTimeStamp() {
	d.haveLastCC = false
}

// SetDecryptData accepts SAMPLE-AES decryption parameters. SAMPLE-AES is
// out of scope for the core; this exists only so a caller that serializes
// it alongside Push has a stable call to make.
func (d *Demuxer) SetDecryptData(decryptData any) {}

// Destroy releases the demuxer's track and scanner state. The Demuxer
// must not be used again afterward.
func (d *Demuxer) Destroy() {
	d.videoTrack = nil
	d.audioTrack = nil
	d.id3Track = nil
	d.textTrack = nil
	d.nals = nil
	d.aacScanner = nil
	d.mpegScanner = nil
	d.avcSample = nil
	d.openVideoUnit = nil
	d.hevcGroup = nil
	d.hevcGroupHasSlice = false
	d.videoAcc.reset()
	d.audioAcc.reset()
	d.id3Acc.reset()
}

func (d *Demuxer) triggerParsingError(fatal bool, format string, args ...any) {
	if fatal {
		d.fatal = true
	}
	if d.observer == nil {
		return
	}
	d.observer.Trigger(remux.ERROR, remux.ErrorPayload{
		Type:    "MEDIA_ERROR",
		Details: remux.FragParsingError,
		Fatal:   fatal,
		Reason:  fmt.Sprintf(format, args...),
	})
}

// videoIsHEVC reports whether the learned video stream_type is HEVC
// (0x24); anything else (including the AVC stream_type 0x1B) is treated
// as AVC, matching the PMT stream-type table's exhaustive two-entry
// video mapping.
func (d *Demuxer) videoIsHEVC() bool {
	return d.videoTrack.StreamType == psi.StreamTypeHEVC
}
