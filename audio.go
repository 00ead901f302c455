package tsdemux

import (
	"fmt"

	"github.com/driftline/tsdemux/aac"
	"github.com/driftline/tsdemux/pes"
	"github.com/driftline/tsdemux/psi"
	"github.com/driftline/tsdemux/track"
)

// flushAudio closes the audio PES accumulator and scans its payload for
// AAC/ADTS or MPEG Layer II/III frames, per the learned audio stream_type.
func (d *Demuxer) flushAudio() {
	if d.audioAcc.empty() {
		return
	}
	result, ok := pes.Parse(d.audioAcc.slices, d.audioAcc.size, d.log)
	d.audioAcc.reset()
	if !ok {
		return
	}

	if d.audioTrack.StreamType == psi.StreamTypeAAC {
		d.pushAACFrames(result.PTS, result.Data)
	} else {
		d.pushMPEGAudioFrames(result.PTS, result.Data)
	}
}

// pushAACFrames scans an AAC PES payload, surfacing a non-fatal
// misalignment error when the payload didn't start on an ADTS header and
// a fatal one when no header was found at all.
func (d *Demuxer) pushAACFrames(pts int64, data []byte) {
	frames, err := d.aacScanner.Push(pts, data)
	if err != nil {
		if nonFatal, ok := err.(*aac.NonFatalError); ok {
			d.triggerParsingError(false, "AAC PES did not start with ADTS header,offset:%d", nonFatal.Offset)
		} else {
			d.triggerParsingError(true, "no ADTS header found in AAC PES")
			return
		}
	}

	if d.audioTrack.SampleRate == 0 && d.aacScanner.Config.Initialized {
		d.applyAACConfig()
	}
	for _, f := range frames {
		d.audioTrack.Append(track.AudioSample{PTS: f.PTS, Data: f.Data})
	}
}

func (d *Demuxer) applyAACConfig() {
	cfg := d.aacScanner.Config
	d.audioTrack.SampleRate = cfg.SampleRate
	d.audioTrack.ChannelConfig = cfg.ChannelCfg
	d.audioTrack.ObjectType = cfg.ObjectType
	d.audioTrack.Codec = fmt.Sprintf("mp4a.40.%d", cfg.ObjectType)

	isHEAAC := cfg.ObjectType == 5 // SBR
	if isHEAAC && d.typeSupported != nil && !d.typeSupported["he-aac"] {
		isHEAAC = false // downmix policy: typeSupported gates HE-AAC vs LC-AAC
	}
	d.audioTrack.IsHEAAC = isHEAAC
}

// pushMPEGAudioFrames scans an MPEG Layer II/III PES payload.
func (d *Demuxer) pushMPEGAudioFrames(pts int64, data []byte) {
	frames, err := d.mpegScanner.Push(pts, data)
	if err != nil {
		d.triggerParsingError(true, "no MPEG audio frame header found in audio PES")
		return
	}

	if d.audioTrack.SampleRate == 0 && d.mpegScanner.Config.Initialized {
		cfg := d.mpegScanner.Config
		d.audioTrack.SampleRate = cfg.SampleRate
		d.audioTrack.ChannelConfig = cfg.Channels
		d.audioTrack.Codec = mpegAudioCodecString(cfg.Layer)
	}
	for _, f := range frames {
		d.audioTrack.Append(track.AudioSample{PTS: f.PTS, Data: f.Data})
	}
}

// mpegAudioCodecString returns the RFC 6381 codec string for an MPEG
// audio layer: mp4a.6B for Layer III (MP3), mp4a.69 for Layer I/II.
func mpegAudioCodecString(layer int) string {
	if layer == 3 {
		return "mp4a.6B"
	}
	return "mp4a.69"
}
