// Package pes reassembles Packetized Elementary Stream payloads out of
// TS payload fragments and extracts 33-bit PTS/DTS timestamps.
package pes

import (
	"github.com/sirupsen/logrus"
)

// Result is a reassembled PES payload with its timestamps.
type Result struct {
	Data []byte
	PTS  int64
	DTS  int64
	Len  int // pes_packet_length - header_data_length - 3, per the wire field
}

const maxPTSDTSDrift = 60 * 90000 // 60 seconds at the 90kHz clock

// Parse reassembles the PES payload held across slices (contiguous TS
// payload fragments for one PID) and extracts its timestamps. It merges
// leading slices until the first holds at least 19 bytes (enough for a
// full optional header with both PTS and DTS) before reading any fields.
// Returns ok=false on a malformed or truncated packet, per the
// "PES-truncation: silent recovery" policy — the caller discards the
// accumulator and moves on.
func Parse(slices [][]byte, totalSize int, log logrus.FieldLogger) (Result, bool) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	slices = mergeHead(slices, 19)
	if len(slices) == 0 || len(slices[0]) < 6 {
		return Result{}, false
	}
	head := slices[0]

	if head[0] != 0x00 || head[1] != 0x00 || head[2] != 0x01 {
		return Result{}, false
	}

	pesLen := int(head[4])<<8 | int(head[5])
	if pesLen != 0 && pesLen > totalSize-6 {
		return Result{}, false
	}

	if len(head) < 9 {
		return Result{}, false
	}
	flags := head[7]

	var pts, dts int64
	if flags&0xC0 != 0 {
		if len(head) < 14 {
			return Result{}, false
		}
		pts = readTimestamp(head[9:14])
		if flags&0x40 != 0 {
			if len(head) < 19 {
				return Result{}, false
			}
			dts = readTimestamp(head[14:19])
		} else {
			dts = pts
		}
	}

	if pts-dts > maxPTSDTSDrift {
		log.WithFields(logrus.Fields{"pts": pts, "dts": dts}).Warn("pes: PTS/DTS drift exceeds 60s, forcing PTS=DTS")
		pts = dts
	}

	hdrLen := int(head[8])
	payloadStart := 9 + hdrLen

	data := trimHead(slices, payloadStart)

	return Result{
		Data: data,
		PTS:  pts,
		DTS:  dts,
		Len:  pesLen - hdrLen - 3,
	}, true
}

// readTimestamp decodes a 33-bit PTS or DTS from 5 PES timestamp bytes
// using the overflow-safe reconstruction, then applies the
// signed-wrap policy for values beyond 2^32-1.
func readTimestamp(b []byte) int64 {
	v := int64(b[0]&0x0E)<<29 +
		int64(b[1])<<22 +
		int64(b[2]&0xFE)<<14 +
		int64(b[3])<<7 +
		int64(b[4]&0xFE)/2

	const maxUint32 = int64(1)<<32 - 1
	if v > maxUint32 {
		v -= int64(1) << 33
	}
	return v
}

// mergeHead concatenates leading slices into one until it reaches at
// least n bytes or no slices remain.
func mergeHead(slices [][]byte, n int) [][]byte {
	if len(slices) == 0 || len(slices[0]) >= n {
		return slices
	}
	merged := make([]byte, 0, n)
	i := 0
	for i < len(slices) && len(merged) < n {
		merged = append(merged, slices[i]...)
		i++
	}
	out := make([][]byte, 0, len(slices)-i+1)
	out = append(out, merged)
	out = append(out, slices[i:]...)
	return out
}

// trimHead removes the first n bytes from the concatenation of slices
// and returns the remainder as one contiguous slice.
func trimHead(slices [][]byte, n int) []byte {
	var out []byte
	for _, s := range slices {
		if n > 0 {
			if n >= len(s) {
				n -= len(s)
				continue
			}
			s = s[n:]
			n = 0
		}
		out = append(out, s...)
	}
	return out
}
