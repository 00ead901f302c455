package tsdemux

import "github.com/driftline/tsdemux/pes"

// flushVideo closes the video PES accumulator, runs the NAL scanner over
// its payload, and dispatches the resulting NAL units to the AVC or HEVC
// access-unit builder per the learned video stream_type.
func (d *Demuxer) flushVideo() {
	if d.videoAcc.empty() {
		return
	}
	result, ok := pes.Parse(d.videoAcc.slices, d.videoAcc.size, d.log)
	d.videoAcc.reset()
	if !ok {
		return
	}

	units := d.nals.Push(result.Data)
	if d.videoIsHEVC() {
		d.handleHEVCNALUnits(units, result.PTS, result.DTS)
		// A group that already holds a slice NAL is a complete access unit:
		// nothing later in the stream can still belong to it, so it closes
		// here even without a trailing AUD. A group holding only parameter
		// sets stays open, since its last NAL may still be corrected by a
		// continuation on the next call.
		if d.hevcGroupHasSlice {
			d.closeHEVCGroup(result.PTS, result.DTS)
		}
	} else {
		d.handleAVCNALUnits(units, result.PTS, result.DTS)
		if d.avcSample != nil && d.avcSample.Frame {
			d.closeAVCSample()
		}
	}
}
