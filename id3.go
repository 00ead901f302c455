package tsdemux

import (
	"github.com/driftline/tsdemux/id3"
	"github.com/driftline/tsdemux/pes"
	"github.com/driftline/tsdemux/track"
)

// flushID3 closes the id3 PES accumulator and appends its payload to the
// id3 track as an opaque sample.
func (d *Demuxer) flushID3() {
	if d.id3Acc.empty() {
		return
	}
	result, ok := pes.Parse(d.id3Acc.slices, d.id3Acc.size, d.log)
	d.id3Acc.reset()
	if !ok {
		return
	}

	sample := id3.Append(result.Data, result.PTS, result.DTS)
	d.id3Track.Append(track.ID3Sample{PTS: sample.PTS, DTS: sample.DTS, Data: sample.Data})
}
