package tsdemux

import (
	"github.com/driftline/tsdemux/annexb"
	"github.com/driftline/tsdemux/hevc"
	"github.com/driftline/tsdemux/track"
)

// pushableHEVC reports whether a NAL type is collected into the current
// group. Only AUD (which closes the
// group instead) and reserved/unrecognized types are excluded.
func pushableHEVC(t byte) bool {
	switch {
	case t <= 9:
		return true
	case t >= hevc.NALBlaWLP && t <= hevc.NALCraNut: // 16-21
		return true
	case t == hevc.NALVPS || t == hevc.NALSPS || t == hevc.NALPPS:
		return true
	case t >= hevc.NALEOS && t <= hevc.NALSEISuffix: // 36-40
		return true
	default:
		return false
	}
}

// isHEVCSlice reports whether t is a VCL NAL type (trailing picture or IRAP
// slice), as opposed to a parameter set or suffix/SEI type.
func isHEVCSlice(t byte) bool {
	return t <= 9 || (t >= hevc.NALBlaWLP && t <= hevc.NALCraNut)
}

// handleHEVCNALUnits walks HEVC NAL units, collecting them into the
// current group until an AUD closes it into an access unit.
// flushVideo also force-closes a group once it holds a slice, so a stream
// with no AUD still gets its access unit out by the end of the call. A
// unit that is the same object as openVideoUnit is a continuation the
// scanner already reported once, still open at the end of the previous
// call; it patches the already-recorded group entry instead of
// duplicating it.
func (d *Demuxer) handleHEVCNALUnits(units []*annexb.NALUnit, pts, dts int64) {
	for _, u := range units {
		if u.Type == hevc.NALAUD {
			d.closeHEVCGroup(pts, dts)
			d.openVideoUnit = nil
			continue
		}
		if !pushableHEVC(u.Type) {
			continue
		}

		if hevc.IsKeyframe(u.Type) {
			d.hevcGroupKey = true
		}
		if isHEVCSlice(u.Type) {
			d.hevcGroupHasSlice = true
		}
		if u == d.openVideoUnit && len(d.hevcGroup) > 0 {
			last := &d.hevcGroup[len(d.hevcGroup)-1]
			d.hevcGroupLen += len(u.Data) - len(last.Data)
			last.Data = u.Data
		} else {
			d.hevcGroup = append(d.hevcGroup, track.NALUnit{Type: u.Type, Data: u.Data})
			d.hevcGroupLen += len(u.Data)
		}
		d.openVideoUnit = u

		switch u.Type {
		case hevc.NALVPS:
			if d.videoTrack.VPS == nil {
				d.videoTrack.VPS = append([]byte{}, u.Data...)
			}
		case hevc.NALSPS:
			if d.videoTrack.SPS == nil {
				if info, err := hevc.ParseSPS(u.Data); err == nil {
					d.videoTrack.Width = info.Width
					d.videoTrack.Height = info.Height
					d.videoTrack.ChromaFormatIdc = info.ChromaFormatIdc
					d.videoTrack.BitDepthLumaMinus8 = info.BitDepthLumaMinus8
					d.videoTrack.BitDepthChromaMinus8 = info.BitDepthChromaMinus8
					d.videoTrack.Codec = info.CodecString()
					d.videoTrack.SPS = append([]byte{}, u.Data...)
				}
			}
		case hevc.NALPPS:
			if d.videoTrack.PPS == nil {
				d.videoTrack.PPS = append([]byte{}, u.Data...)
			}
		}
	}
}

// closeHEVCGroup closes the current group into an access unit. A group
// with no keyframe NAL is dropped when config.ForceKeyFrameOnDiscontinuity
// is set and the track's SPS is still unknown.
func (d *Demuxer) closeHEVCGroup(pts, dts int64) {
	if len(d.hevcGroup) == 0 {
		return
	}

	accept := !d.config.ForceKeyFrameOnDiscontinuity || d.hevcGroupKey || d.videoTrack.SPS != nil
	if accept {
		d.videoTrack.Append(track.VideoSample{
			PTS:      pts,
			DTS:      dts,
			Keyframe: d.hevcGroupKey,
			Frame:    true,
			NALUs:    d.hevcGroup,
			Len:      d.hevcGroupLen,
		})
	} else {
		d.videoTrack.Dropped++
	}

	d.hevcGroup = nil
	d.hevcGroupKey = false
	d.hevcGroupLen = 0
	d.hevcGroupHasSlice = false
}
