// Command tsinspect drives tsdemux against a Transport Stream file and
// prints a summary of the tracks and samples it finds, one Remux call at
// a time. It's a manual verification tool, not part of the library.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/driftline/tsdemux"
	"github.com/driftline/tsdemux/remux"
	"github.com/driftline/tsdemux/track"
)

var (
	chunkSize = pflag.IntP("chunk-size", "c", 0, "split the input into chunks of this many bytes before each Push call (0 = one Push for the whole file)")
	verbose   = pflag.BoolP("verbose", "v", false, "log per-sample detail instead of just per-call totals")
	forceKey  = pflag.Bool("force-keyframe-on-discontinuity", false, "drop HEVC access units with no keyframe NAL before the SPS is known")
)

// printingObserver logs every fault the demuxer reports.
type printingObserver struct {
	log logrus.FieldLogger
}

func (o printingObserver) Trigger(event remux.EventType, payload remux.ErrorPayload) {
	entry := o.log.WithFields(logrus.Fields{
		"event":  event,
		"detail": payload.Details,
		"fatal":  payload.Fatal,
	})
	if payload.Fatal {
		entry.Error(payload.Reason)
	} else {
		entry.Warn(payload.Reason)
	}
}

// printingRemuxer prints one summary line per call, plus per-sample
// detail when verbose is set. It never asks for passthrough.
type printingRemuxer struct {
	log   logrus.FieldLogger
	calls int
}

func (r *printingRemuxer) Passthrough() bool { return false }

func (r *printingRemuxer) Remux(audio *track.Audio, video *track.Video, id3 *track.ID3, text *track.Text,
	timeOffset int64, contiguous bool, accurateTimeOffset bool) {
	r.calls++
	r.log.Infof("call %d: video=%d audio=%d id3=%d text=%d contiguous=%v",
		r.calls, len(video.Samples), len(audio.Samples), len(id3.Samples), len(text.Samples), contiguous)

	if video.Codec != "" {
		r.log.Infof("  video codec=%s %dx%d", video.Codec, video.Width, video.Height)
	}
	if audio.Codec != "" {
		r.log.Infof("  audio codec=%s rate=%d channels=%d", audio.Codec, audio.SampleRate, audio.ChannelConfig)
	}

	if !*verbose {
		return
	}
	for i, s := range video.Samples {
		r.log.Infof("  video[%d] pts=%d dts=%d key=%v nalus=%d bytes=%d", i, s.PTS, s.DTS, s.Keyframe, len(s.NALUs), s.Len)
	}
	for i, s := range audio.Samples {
		r.log.Infof("  audio[%d] pts=%d bytes=%d", i, s.PTS, len(s.Data))
	}
}

func main() {
	pflag.Parse()
	log := logrus.StandardLogger()

	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: tsinspect [flags] <file.ts>")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	data, err := os.ReadFile(pflag.Arg(0))
	if err != nil {
		log.Fatalf("read %s: %v", pflag.Arg(0), err)
	}

	if !tsdemux.Probe(data) {
		log.Fatal("input does not look like a Transport Stream")
	}

	observer := printingObserver{log: log}
	remuxer := &printingRemuxer{log: log}
	config := tsdemux.Config{ForceKeyFrameOnDiscontinuity: *forceKey}
	typeSupported := map[string]bool{"he-aac": true}

	d := tsdemux.NewDemuxer(observer, remuxer, config, typeSupported, tsdemux.WithLogger(log))

	size := *chunkSize
	if size <= 0 {
		size = len(data)
	}
	var cc uint8
	for off := 0; off < len(data); off += size {
		end := off + size
		if end > len(data) {
			end = len(data)
		}
		d.Push(data[off:end], "", "", 0, cc, 0, int64(off/size), 0)
		cc++
	}

	log.Infof("done: %d Push call(s), %d Remux call(s)", (len(data)+size-1)/size, remuxer.calls)
}
