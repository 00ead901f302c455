// Package annexb scans Annex-B byte streams (0x000001 / 0x00000001
// start-code framed NAL units) for both AVC and HEVC, carrying scanner
// state across calls so a start code split between two Push calls is
// still resolved into exactly one NAL unit.
package annexb

// NALUnit is one NAL unit extracted from an Annex-B byte stream. Data
// starts at the NAL header byte (the byte after the start code). Data may
// still grow (on a later Push call, if the unit was still open at the end
// of a buffer) or shrink by a few bytes (if a later call discovers that
// trailing zero bytes already appended to it were actually the head of
// the next start code).
type NALUnit struct {
	Type byte
	Data []byte
}

// TypeFunc extracts a NAL unit type from the byte immediately following
// a start code's terminating 0x01. avc.NALType and hevc.NALType both
// satisfy this signature.
type TypeFunc func(firstByte byte) byte

// Scanner holds the cross-call state for one PID's Annex-B byte stream:
// the trailing zero-byte run length at the end of the last buffer (0-3,
// or -1 for the degenerate "start code completed on the buffer's very
// last byte" case), and the NAL unit that was still open when the last
// buffer ended.
type Scanner struct {
	typeOf TypeFunc

	state        int
	openEndState int
	open         *NALUnit
}

// NewScanner returns a Scanner that classifies NAL types with typeOf.
func NewScanner(typeOf TypeFunc) *Scanner {
	return &Scanner{typeOf: typeOf}
}

// SetTypeFunc changes how subsequent Push calls classify NAL types. It
// does not touch scanner state, so it is safe to call once the stream's
// codec (AVC vs HEVC) becomes known after construction.
func (s *Scanner) SetTypeFunc(typeOf TypeFunc) {
	s.typeOf = typeOf
}

// Reset clears all cross-call state. Called on resetInitSegment.
func (s *Scanner) Reset() {
	s.state = 0
	s.openEndState = 0
	s.open = nil
}

// Push scans data, the concatenation of one PID's PES payloads for this
// call, for Annex-B start codes. It returns every NAL unit touched during
// the call, in order: a continuing unit from a previous call (if any) is
// always first, followed by any units newly opened in this call. The
// caller should read Data only after Push returns, since a later Push
// call can still mutate the Data of the last unit in the returned slice.
func (s *Scanner) Push(data []byte) []*NALUnit {
	n := len(data)
	var units []*NALUnit
	unitStart := 0
	firstStartCode := true
	i := 0

	if s.state == -1 {
		if n == 0 {
			return nil
		}
		s.open = &NALUnit{Type: s.typeOf(data[0])}
		units = append(units, s.open)
		unitStart = 0
		i = 1
		s.state = 0
		s.openEndState = 0
		firstStartCode = false
	} else if s.open != nil {
		units = append(units, s.open)
	}

	zeros := s.state
	if zeros < 0 {
		zeros = 0
	}

	for i < n {
		b := data[i]
		if b == 0 {
			if zeros < 3 {
				zeros++
			}
			i++
			continue
		}
		if b == 1 && zeros >= 2 {
			// The start code's zero bytes begin at i-zeros.
			if firstStartCode {
				firstStartCode = false
				if s.open != nil && s.openEndState > 0 && i <= 4-s.openEndState {
					strip := s.openEndState
					if strip > len(s.open.Data) {
						strip = len(s.open.Data)
					}
					s.open.Data = s.open.Data[:len(s.open.Data)-strip]
				} else if s.open != nil {
					end := i - zeros
					if end > unitStart {
						s.open.Data = append(s.open.Data, data[unitStart:end]...)
					}
				}
			} else if s.open != nil {
				end := i - zeros
				if end > unitStart {
					s.open.Data = append(s.open.Data, data[unitStart:end]...)
				}
			}

			if i+1 < n {
				s.open = &NALUnit{Type: s.typeOf(data[i+1])}
				units = append(units, s.open)
				unitStart = i + 1
				i += 2
				zeros = 0
				continue
			}

			s.open = nil
			s.state = -1
			return units
		}
		zeros = 0
		i++
	}

	if s.open != nil && n > unitStart {
		s.open.Data = append(s.open.Data, data[unitStart:n]...)
	}
	s.openEndState = zeros
	s.state = zeros
	return units
}
