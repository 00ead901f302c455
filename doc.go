// Package tsdemux implements MPEG-2 Transport Stream demuxing: extracting
// elementary H.264/AVC or H.265/HEVC video, AAC/ADTS or MPEG-1/2 Layer
// II/III audio, ID3 metadata, and CEA-608 captions from a TS byte stream
// and handing them to a downstream remuxer as timestamped access units.
//
// The central type is [Demuxer]. Callers feed it buffers via Push; it
// drives PAT/PMT discovery, PES reassembly, and codec-specific parsing
// internally and calls the configured [github.com/driftline/tsdemux/remux.Remuxer]
// once per buffer. Demuxer is not safe for concurrent use: push,
// ResetInitSegment, ResetTimeStamp, SetDecryptData, and Destroy must all
// be called from the same goroutine.
package tsdemux
