// Package id3 appends opaque PES payloads carrying ID3 metadata to a
// track's sample list. No attempt is made to decode ID3 frames.
package id3

// Sample is one ID3-carrying PES payload, unparsed.
type Sample struct {
	Data []byte
	PTS  int64
	DTS  int64
}

// Append wraps a reassembled PES payload as an ID3 sample. It exists
// only for symmetry with the other payload parsers (aac.Push,
// mpegaudio.Push): callers may just as well construct Sample directly.
func Append(data []byte, pts, dts int64) Sample {
	return Sample{Data: data, PTS: pts, DTS: dts}
}
