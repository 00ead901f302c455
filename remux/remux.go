// Package remux declares the external collaborator interfaces the core
// demuxer drives: the fault observer and the downstream remuxer. Both
// are implemented outside this module; the core only calls them.
package remux

import "github.com/driftline/tsdemux/track"

// EventType identifies the kind of event delivered to an Observer.
type EventType string

// ERROR is the only event type the core currently emits.
const ERROR EventType = "ERROR"

// ErrorDetail classifies an ERROR event.
type ErrorDetail string

// FragParsingError is the only detail value the core currently emits.
const FragParsingError ErrorDetail = "FRAG_PARSING_ERROR"

// ErrorPayload is the payload of an ERROR event.
type ErrorPayload struct {
	Type    string
	Details ErrorDetail
	Fatal   bool
	Reason  string
}

// Observer receives fault notifications from the core. Recoverable
// conditions are reported with Fatal=false and parsing continues;
// unrecoverable conditions are reported with Fatal=true and push()
// returns without emitting to the Remuxer for that call.
type Observer interface {
	Trigger(event EventType, payload ErrorPayload)
}

// Remuxer receives the samples accumulated by one push() call. When
// Passthrough is true, the demuxer may short-circuit after codec
// identification on both audio and video, emitting empty sample lists.
type Remuxer interface {
	Remux(audio *track.Audio, video *track.Video, id3 *track.ID3, text *track.Text,
		timeOffset int64, contiguous bool, accurateTimeOffset bool)
	Passthrough() bool
}
