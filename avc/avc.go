// Package avc parses H.264/AVC NAL units: the Sequence Parameter Set (for
// resolution, pixel aspect ratio, and RFC 6381 codec string), slice_type
// for conservative keyframe detection, and pic_timing SEI messages.
package avc

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/driftline/tsdemux/bits"
)

// NAL unit type constants, ITU-T H.264 Table 7-1.
const (
	NALSlice      = 1
	NALIDR        = 5
	NALSEI        = 6
	NALSPS        = 7
	NALPPS        = 8
	NALAUD        = 9
	NALFiller     = 12
)

// SliceType values that indicate the access unit is a reference/keyframe
// slice: I (2,7) and SI (4,9) slices.
var keySliceTypes = map[uint]bool{2: true, 4: true, 7: true, 9: true}

// ErrSPSTooShort is returned when an SPS NAL unit is too small to parse.
var ErrSPSTooShort = errors.New("avc: SPS too short")

// NALType extracts the 5-bit NAL unit type from the first byte of a NAL
// unit (start code already stripped).
func NALType(firstByte byte) byte {
	return firstByte & 0x1F
}

// SPSInfo holds the fields extracted from an H.264 SPS needed for the
// Track's width/height/pixelRatio/codec fields, plus the HRD/VUI fields
// pic_timing SEI parsing needs.
type SPSInfo struct {
	Width              int
	Height             int
	PixelRatioWidth    int
	PixelRatioHeight   int
	ProfileIDC         byte
	ConstraintFlags    byte
	LevelIDC           byte
	PicStructPresent   bool
	HRDPresent         bool
	CpbRemovalDelayLen int
	DpbOutputDelayLen  int
	TimeOffsetLen      int
}

// CodecString returns the RFC 6381 codec parameter string, e.g.
// "avc1.42e01e" (lowercase hex), built from the first three SPS payload bytes
// (profile_idc, constraint flags, level_idc).
func (s SPSInfo) CodecString() string {
	return fmt.Sprintf("avc1.%02x%02x%02x", s.ProfileIDC, s.ConstraintFlags, s.LevelIDC)
}

func hasChromaFormatIDC(profileIDC uint) bool {
	switch profileIDC {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134:
		return true
	default:
		return false
	}
}

// ParseSPS parses an H.264 SPS NAL unit (including the 1-byte NAL header,
// start code already stripped) into width, height, pixel aspect ratio, and
// codec identification fields.
func ParseSPS(nalu []byte) (SPSInfo, error) {
	if len(nalu) < 4 {
		return SPSInfo{}, ErrSPSTooShort
	}

	rbsp := bits.RemoveEmulationPrevention(nalu[1:])
	r := bits.NewReader(rbsp)

	profileIDC, err := r.ReadBits(8)
	if err != nil {
		return SPSInfo{}, errors.Wrap(err, "avc: profile_idc")
	}
	constraintFlags, err := r.ReadBits(8)
	if err != nil {
		return SPSInfo{}, errors.Wrap(err, "avc: constraint flags")
	}
	levelIDC, err := r.ReadBits(8)
	if err != nil {
		return SPSInfo{}, errors.Wrap(err, "avc: level_idc")
	}
	if _, err := r.ReadUE(); err != nil { // seq_parameter_set_id
		return SPSInfo{}, errors.Wrap(err, "avc: sps_id")
	}

	chromaFormatIDC := uint(1)
	separateColourPlane := false

	if hasChromaFormatIDC(profileIDC) {
		chromaFormatIDC, err = r.ReadUE()
		if err != nil {
			return SPSInfo{}, err
		}
		if chromaFormatIDC == 3 {
			v, err := r.ReadBits(1)
			if err != nil {
				return SPSInfo{}, err
			}
			separateColourPlane = v == 1
		}
		if _, err := r.ReadUE(); err != nil { // bit_depth_luma_minus8
			return SPSInfo{}, err
		}
		if _, err := r.ReadUE(); err != nil { // bit_depth_chroma_minus8
			return SPSInfo{}, err
		}
		if _, err := r.ReadBits(1); err != nil { // qpprime_y_zero_transform_bypass_flag
			return SPSInfo{}, err
		}
		scalingMatrixPresent, err := r.ReadBits(1)
		if err != nil {
			return SPSInfo{}, err
		}
		if scalingMatrixPresent == 1 {
			limit := 8
			if chromaFormatIDC == 3 {
				limit = 12
			}
			for i := 0; i < limit; i++ {
				flag, err := r.ReadBits(1)
				if err != nil {
					return SPSInfo{}, err
				}
				if flag == 1 {
					size := 16
					if i >= 6 {
						size = 64
					}
					if err := r.SkipScalingList(size); err != nil {
						return SPSInfo{}, err
					}
				}
			}
		}
	}

	if _, err := r.ReadUE(); err != nil { // log2_max_frame_num_minus4
		return SPSInfo{}, err
	}
	picOrderCntType, err := r.ReadUE()
	if err != nil {
		return SPSInfo{}, err
	}
	switch picOrderCntType {
	case 0:
		if _, err := r.ReadUE(); err != nil {
			return SPSInfo{}, err
		}
	case 1:
		if _, err := r.ReadBits(1); err != nil {
			return SPSInfo{}, err
		}
		if _, err := r.ReadSE(); err != nil {
			return SPSInfo{}, err
		}
		if _, err := r.ReadSE(); err != nil {
			return SPSInfo{}, err
		}
		numRefFrames, err := r.ReadUE()
		if err != nil {
			return SPSInfo{}, err
		}
		for i := uint(0); i < numRefFrames; i++ {
			if _, err := r.ReadSE(); err != nil {
				return SPSInfo{}, err
			}
		}
	}

	if _, err := r.ReadUE(); err != nil { // max_num_ref_frames
		return SPSInfo{}, err
	}
	if _, err := r.ReadBits(1); err != nil { // gaps_in_frame_num_value_allowed_flag
		return SPSInfo{}, err
	}

	picWidthMBs, err := r.ReadUE()
	if err != nil {
		return SPSInfo{}, err
	}
	picHeightMapUnits, err := r.ReadUE()
	if err != nil {
		return SPSInfo{}, err
	}
	frameMBSOnly, err := r.ReadBits(1)
	if err != nil {
		return SPSInfo{}, err
	}
	if frameMBSOnly == 0 {
		if _, err := r.ReadBits(1); err != nil { // mb_adaptive_frame_field_flag
			return SPSInfo{}, err
		}
	}
	if _, err := r.ReadBits(1); err != nil { // direct_8x8_inference_flag
		return SPSInfo{}, err
	}

	var cropLeft, cropRight, cropTop, cropBottom uint
	cropFlag, err := r.ReadBits(1)
	if err != nil {
		return SPSInfo{}, err
	}
	if cropFlag == 1 {
		if cropLeft, err = r.ReadUE(); err != nil {
			return SPSInfo{}, err
		}
		if cropRight, err = r.ReadUE(); err != nil {
			return SPSInfo{}, err
		}
		if cropTop, err = r.ReadUE(); err != nil {
			return SPSInfo{}, err
		}
		if cropBottom, err = r.ReadUE(); err != nil {
			return SPSInfo{}, err
		}
	}

	chromaArrayType := chromaFormatIDC
	if separateColourPlane {
		chromaArrayType = 0
	}
	var subWidthC, subHeightC uint
	switch chromaArrayType {
	case 1:
		subWidthC, subHeightC = 2, 2
	case 2:
		subWidthC, subHeightC = 2, 1
	case 3:
		subWidthC, subHeightC = 1, 1
	default:
		subWidthC, subHeightC = 2, 2
	}

	cropUnitX := subWidthC
	cropUnitY := subHeightC * (2 - frameMBSOnly)

	width := int((picWidthMBs+1)*16 - cropUnitX*(cropLeft+cropRight))
	heightMul := 2 - frameMBSOnly
	height := int((picHeightMapUnits+1)*16*heightMul - cropUnitY*(cropTop+cropBottom))

	info := SPSInfo{
		Width:            width,
		Height:           height,
		PixelRatioWidth:  1,
		PixelRatioHeight: 1,
		ProfileIDC:       byte(profileIDC),
		ConstraintFlags:  byte(constraintFlags),
		LevelIDC:         byte(levelIDC),
	}

	vuiPresent, err := r.ReadBits(1)
	if err != nil || vuiPresent == 0 {
		return info, nil
	}

	parseAspectRatio(r, &info)
	parseRemainingVUI(r, &info)

	return info, nil
}

// aspectRatioTable maps aspect_ratio_idc (1-16) to pixel aspect ratio, per
// H.264 Table E-1.
var aspectRatioTable = [...][2]int{
	{0, 0}, {1, 1}, {12, 11}, {10, 11}, {16, 11}, {40, 33}, {24, 11}, {20, 11},
	{32, 11}, {80, 33}, {18, 11}, {15, 11}, {64, 33}, {160, 99}, {4, 3}, {3, 2}, {2, 1},
}

func parseAspectRatio(r *bits.Reader, info *SPSInfo) {
	present, err := r.ReadBits(1)
	if err != nil || present == 0 {
		return
	}
	idc, err := r.ReadBits(8)
	if err != nil {
		return
	}
	if idc == 255 { // Extended_SAR
		w, err := r.ReadBits(16)
		if err != nil {
			return
		}
		h, err := r.ReadBits(16)
		if err != nil {
			return
		}
		info.PixelRatioWidth, info.PixelRatioHeight = int(w), int(h)
		return
	}
	if int(idc) < len(aspectRatioTable) {
		info.PixelRatioWidth = aspectRatioTable[idc][0]
		info.PixelRatioHeight = aspectRatioTable[idc][1]
	}
}

func parseRemainingVUI(r *bits.Reader, info *SPSInfo) {
	skipFlaggedField := func(flagBits, dataBits int) {
		f, err := r.ReadBits(flagBits)
		if err != nil || f == 0 {
			return
		}
		r.ReadBits(dataBits)
	}

	skipFlaggedField(1, 1) // overscan

	videoSignal, _ := r.ReadBits(1)
	if videoSignal == 1 {
		r.ReadBits(4)
		colourDesc, _ := r.ReadBits(1)
		if colourDesc == 1 {
			r.ReadBits(24)
		}
	}

	chromaLoc, _ := r.ReadBits(1)
	if chromaLoc == 1 {
		r.ReadUE()
		r.ReadUE()
	}

	timingPresent, _ := r.ReadBits(1)
	if timingPresent == 1 {
		r.ReadBits(32)
		r.ReadBits(32)
		r.ReadBits(1)
	}

	parseHRD := func() {
		cpbCnt, _ := r.ReadUE()
		r.ReadBits(8)
		for i := uint(0); i <= cpbCnt; i++ {
			r.ReadUE()
			r.ReadUE()
			r.ReadBits(1)
		}
		r.ReadBits(5)
		cpbRDLen, _ := r.ReadBits(5)
		dpbODLen, _ := r.ReadBits(5)
		toLen, _ := r.ReadBits(5)
		info.CpbRemovalDelayLen = int(cpbRDLen) + 1
		info.DpbOutputDelayLen = int(dpbODLen) + 1
		info.TimeOffsetLen = int(toLen)
		info.HRDPresent = true
	}

	nalHRD, _ := r.ReadBits(1)
	if nalHRD == 1 {
		parseHRD()
	}
	vclHRD, _ := r.ReadBits(1)
	if vclHRD == 1 && !info.HRDPresent {
		parseHRD()
	}
	if nalHRD == 1 || vclHRD == 1 {
		r.ReadBits(1)
	}

	picStructPresent, _ := r.ReadBits(1)
	info.PicStructPresent = picStructPresent == 1
}

// SliceType parses slice_type from the start of a non-IDR slice NAL
// payload (after the NAL header byte). Used to conservatively
// upgrade a type-1 slice to a keyframe when its slice_type is I or SI.
func SliceType(nalPayload []byte) (uint, error) {
	if len(nalPayload) <= 4 {
		return 0, ErrSPSTooShort
	}
	rbsp := bits.RemoveEmulationPrevention(nalPayload[1:])
	r := bits.NewReader(rbsp)
	if _, err := r.ReadUE(); err != nil { // first_mb_in_slice
		return 0, err
	}
	return r.ReadUE() // slice_type
}

// IsKeySliceType reports whether slice_type designates an I or SI slice.
func IsKeySliceType(sliceType uint) bool {
	return keySliceTypes[sliceType]
}

// Timecode is a SMPTE 12M timecode extracted from a pic_timing SEI message.
type Timecode struct {
	Hours   int
	Minutes int
	Seconds int
	Frames  int
}

func (tc Timecode) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", tc.Hours, tc.Minutes, tc.Seconds, tc.Frames)
}

// ParsePicTimingSEI extracts a SMPTE 12M timecode from a pic_timing SEI
// message (NAL type 6, payload_type 1). It is not fed into any sample the
// core emits; it is a standalone utility for callers that want SMPTE
// timecodes and have already matched an SPS carrying HRD parameters.
func ParsePicTimingSEI(seiNALU []byte, sps SPSInfo) (Timecode, bool) {
	if len(seiNALU) < 2 || !sps.PicStructPresent || !sps.HRDPresent {
		return Timecode{}, false
	}

	rbsp := bits.RemoveEmulationPrevention(seiNALU[1:])
	i := 0
	for i < len(rbsp) {
		if rbsp[i] == 0x80 {
			break
		}

		payloadType := 0
		for i < len(rbsp) && rbsp[i] == 0xFF {
			payloadType += 255
			i++
		}
		if i >= len(rbsp) {
			break
		}
		payloadType += int(rbsp[i])
		i++

		payloadSize := 0
		for i < len(rbsp) && rbsp[i] == 0xFF {
			payloadSize += 255
			i++
		}
		if i >= len(rbsp) {
			break
		}
		payloadSize += int(rbsp[i])
		i++

		if i+payloadSize > len(rbsp) {
			break
		}

		if payloadType == 1 {
			if tc, ok := parsePicTimingPayload(rbsp[i:i+payloadSize], sps); ok {
				return tc, true
			}
		}
		i += payloadSize
	}

	return Timecode{}, false
}

func parsePicTimingPayload(payload []byte, sps SPSInfo) (Timecode, bool) {
	r := bits.NewReader(payload)

	r.ReadBits(sps.CpbRemovalDelayLen)
	r.ReadBits(sps.DpbOutputDelayLen)

	picStruct, err := r.ReadBits(4)
	if err != nil {
		return Timecode{}, false
	}

	numClockTS := 1
	switch picStruct {
	case 3, 4:
		numClockTS = 2
	case 5, 6, 7, 8:
		numClockTS = 3
	}

	for c := 0; c < numClockTS; c++ {
		clockTSFlag, err := r.ReadBits(1)
		if err != nil {
			return Timecode{}, false
		}
		if clockTSFlag == 0 {
			continue
		}

		r.ReadBits(2) // ct_type
		r.ReadBits(1) // nuit_field_based_flag
		r.ReadBits(5) // counting_type
		fullTSFlag, _ := r.ReadBits(1)
		r.ReadBits(1) // discontinuity_flag
		r.ReadBits(1) // cnt_dropped_flag
		nFrames, _ := r.ReadBits(8)

		var secs, mins, hours uint
		if fullTSFlag == 1 {
			secs, _ = r.ReadBits(6)
			mins, _ = r.ReadBits(6)
			hours, _ = r.ReadBits(5)
		}
		if sps.TimeOffsetLen > 0 {
			r.ReadBits(sps.TimeOffsetLen)
		}

		return Timecode{
			Hours:   int(hours),
			Minutes: int(mins),
			Seconds: int(secs),
			Frames:  int(nFrames),
		}, true
	}

	return Timecode{}, false
}
