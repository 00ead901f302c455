package tsdemux

import (
	"github.com/driftline/tsdemux/annexb"
	"github.com/driftline/tsdemux/avc"
	"github.com/driftline/tsdemux/cea608"
	"github.com/driftline/tsdemux/track"
)

// handleAVCNALUnits walks AVC NAL units in decode order, maintaining the
// in-progress access unit avcSample. flushVideo force-closes
// avcSample once it has a slice, so an AUD-less stream still emits its
// access unit by the end of the call; a sample holding only parameter
// sets stays open, since its last NAL may still be corrected by a
// continuation on the next call. A unit that is the same object as
// openVideoUnit is such a continuation; its AU-boundary effects (slice
// arrival, AUD) must not fire twice.
func (d *Demuxer) handleAVCNALUnits(units []*annexb.NALUnit, pts, dts int64) {
	for _, u := range units {
		continuation := u == d.openVideoUnit

		if continuation && d.avcSample == nil {
			// The access unit holding this unit was already closed; patch
			// the unit's recorded copy in the last emitted sample.
			if n := len(d.videoTrack.Samples); n > 0 {
				s := &d.videoTrack.Samples[n-1]
				if m := len(s.NALUs); m > 0 {
					delta := len(u.Data) - len(s.NALUs[m-1].Data)
					s.NALUs[m-1].Data = u.Data
					s.Len += delta
					d.videoTrack.Len += delta
				}
			}
			continue
		}

		switch u.Type {
		case avc.NALSlice:
			if !continuation {
				d.onAVCSliceArrival(pts, dts)
			}
			d.avcSample.Frame = true
			if d.spsFound && len(u.Data) > 4 {
				if st, err := avc.SliceType(u.Data); err == nil && avc.IsKeySliceType(st) {
					d.avcSample.Keyframe = true
				}
			}
			d.pushAVCNAL(u, pts, dts)

		case avc.NALIDR:
			if !continuation {
				d.onAVCSliceArrival(pts, dts)
			}
			d.avcSample.Keyframe = true
			d.avcSample.Frame = true
			d.pushAVCNAL(u, pts, dts)

		case avc.NALSEI:
			d.pushAVCNAL(u, pts, dts)
			if !continuation {
				for _, cc := range cea608.ExtractFromSEI(u.Data) {
					d.textTrack.Insert(track.TextSample{PTS: pts, Type: cc.Type, Data: cc.Data})
				}
			}

		case avc.NALSPS:
			d.pushAVCNAL(u, pts, dts)
			d.spsFound = true
			if d.videoTrack.SPS == nil {
				if info, err := avc.ParseSPS(u.Data); err == nil {
					d.videoTrack.Width = info.Width
					d.videoTrack.Height = info.Height
					d.videoTrack.PixelRatioWidth = info.PixelRatioWidth
					d.videoTrack.PixelRatioHeight = info.PixelRatioHeight
					d.videoTrack.Codec = info.CodecString()
					d.videoTrack.SPS = append([]byte{}, u.Data...)
				}
			}

		case avc.NALPPS:
			d.pushAVCNAL(u, pts, dts)
			if d.videoTrack.PPS == nil {
				d.videoTrack.PPS = append([]byte{}, u.Data...)
			}

		case avc.NALAUD:
			if !continuation {
				d.audFound = true
				d.closeAVCSample()
				d.newAVCSample(pts, dts, false)
			}
			d.openVideoUnit = u
			continue

		default:
			// Filler (type 12) and anything unrecognized: not pushed.
		}
	}
}

// onAVCSliceArrival implements the AU-boundary heuristic: a
// new slice NAL starts a new access unit when the in-progress one already
// has a slice (the AUD-less synthesis path), or when none is open yet.
func (d *Demuxer) onAVCSliceArrival(pts, dts int64) {
	if d.avcSample != nil && d.avcSample.Frame {
		d.closeAVCSample()
	}
	if d.avcSample == nil {
		d.newAVCSample(pts, dts, true)
	}
}

func (d *Demuxer) newAVCSample(pts, dts int64, key bool) {
	d.avcSample = &track.VideoSample{PTS: pts, DTS: dts, Keyframe: key}
}

// closeAVCSample closes the in-progress access unit into a sample. An
// avcSample with no NAL units is discarded rather than appended, mirroring
// closeHEVCGroup's no-op on an empty group.
func (d *Demuxer) closeAVCSample() {
	if d.avcSample == nil {
		return
	}
	if len(d.avcSample.NALUs) > 0 {
		d.videoTrack.Append(*d.avcSample)
	}
	d.avcSample = nil
}

// pushAVCNAL appends a NAL unit to the in-progress access unit, creating
// one lazily (key=false) if a parameter-set or SEI NAL arrives before any
// slice has opened one. If u is the same object as openVideoUnit, the
// last-recorded NAL unit is patched in place (its Data may have grown or
// been corrected) rather than duplicated.
func (d *Demuxer) pushAVCNAL(u *annexb.NALUnit, pts, dts int64) {
	if d.avcSample == nil {
		d.newAVCSample(pts, dts, false)
	}
	if u == d.openVideoUnit && len(d.avcSample.NALUs) > 0 {
		last := &d.avcSample.NALUs[len(d.avcSample.NALUs)-1]
		d.avcSample.Len += len(u.Data) - len(last.Data)
		last.Data = u.Data
	} else {
		d.avcSample.NALUs = append(d.avcSample.NALUs, track.NALUnit{Type: u.Type, Data: u.Data})
		d.avcSample.Len += len(u.Data)
	}
	d.openVideoUnit = u
}
