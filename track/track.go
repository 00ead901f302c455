// Package track defines the Track data model: one queue per elementary
// stream type (video, audio, id3, text), each with a fixed id, a
// reassignable PID, per-codec configuration, and a running byte length
// that must always equal the sum of its samples' lengths.
package track

// Track ids are fixed for the lifetime of a stream; only the PID behind
// each one may change, and only at a PMT reparse.
const (
	IDVideo = 0
	IDAudio = 1
	IDID3   = 2
	IDText  = 3
)

// TimeScale is the fixed 90kHz clock every track's timestamps are in.
const TimeScale = 90000

// UnknownPID is the sentinel PID value before a track's PID is learned
// from the PMT.
const UnknownPID = -1

// NALUnit is one NAL unit inside a video access unit.
type NALUnit struct {
	Type byte
	Data []byte
}

// VideoSample is one access unit: PTS, DTS, keyframe/frame flags, and
// its NAL units in decode order.
type VideoSample struct {
	PTS      int64
	DTS      int64
	Keyframe bool
	Frame    bool
	NALUs    []NALUnit
	Len      int
}

// AudioSample is one AAC or MPEG audio frame with its PTS.
type AudioSample struct {
	PTS  int64
	Data []byte
}

// ID3Sample is one opaque ID3 PES payload.
type ID3Sample struct {
	PTS  int64
	DTS  int64
	Data []byte
}

// TextSample is one CEA-608/708 caption payload, raw and undecoded.
type TextSample struct {
	PTS  int64
	Type byte
	Data []byte
}

// Video holds the video track's codec configuration and sample queue.
type Video struct {
	PID        int32
	StreamType byte
	Codec      string

	Width            int
	Height           int
	PixelRatioWidth  int
	PixelRatioHeight int
	SPS              []byte
	PPS              []byte
	VPS              []byte

	ChromaFormatIdc      byte
	BitDepthLumaMinus8   byte
	BitDepthChromaMinus8 byte

	Samples []VideoSample
	Len     int
	Dropped int
}

// NewVideo returns a Video track with no PID learned yet.
func NewVideo() *Video {
	return &Video{PID: UnknownPID}
}

// Append adds a sample to the track and keeps Len in sync with the sum
// of its samples' lengths.
func (v *Video) Append(s VideoSample) {
	v.Samples = append(v.Samples, s)
	v.Len += s.Len
}

// Audio holds the audio track's codec configuration and sample queue.
type Audio struct {
	PID           int32
	StreamType    byte
	Codec         string
	SampleRate    int
	ChannelConfig int
	ObjectType    int
	IsHEAAC       bool

	Samples []AudioSample
	Len     int
}

// NewAudio returns an Audio track with no PID learned yet.
func NewAudio() *Audio {
	return &Audio{PID: UnknownPID}
}

func (a *Audio) Append(s AudioSample) {
	a.Samples = append(a.Samples, s)
	a.Len += len(s.Data)
}

// ID3 holds the id3 track's sample queue.
type ID3 struct {
	PID     int32
	Samples []ID3Sample
	Len     int
}

func NewID3() *ID3 {
	return &ID3{PID: UnknownPID}
}

func (t *ID3) Append(s ID3Sample) {
	t.Samples = append(t.Samples, s)
	t.Len += len(s.Data)
}

// Text holds the text (caption) track's sample queue, always sorted by
// non-decreasing PTS.
type Text struct {
	Samples []TextSample
}

func NewText() *Text {
	return &Text{}
}

// Insert adds a sample to the text track in PTS order.
func (t *Text) Insert(s TextSample) {
	i := len(t.Samples)
	for i > 0 && t.Samples[i-1].PTS > s.PTS {
		i--
	}
	t.Samples = append(t.Samples, TextSample{})
	copy(t.Samples[i+1:], t.Samples[i:])
	t.Samples[i] = s
}
