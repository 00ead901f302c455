// Package hevc parses H.265/HEVC NAL units: the Sequence Parameter Set
// (resolution, chroma format, bit depths, RFC 6381 codec string) and the
// profile/tier/level structure it embeds.
package hevc

import (
	"fmt"
	mathbits "math/bits"

	"github.com/pkg/errors"

	"github.com/driftline/tsdemux/bits"
)

// NAL unit type constants, ITU-T H.265 Table 7-1.
const (
	NALTrailingR  = 1
	NALBlaWLP     = 16
	NALIDRWRadl   = 19
	NALIDRNlp     = 20
	NALCraNut     = 21
	NALVPS        = 32
	NALSPS        = 33
	NALPPS        = 34
	NALAUD        = 35
	NALEOS        = 36
	NALEOB        = 37
	NALFillerData = 38
	NALSEIPrefix  = 39
	NALSEISuffix  = 40
)

// ErrSPSTooShort is returned when an SPS NAL unit is too small to parse.
var ErrSPSTooShort = errors.New("hevc: SPS too short")

// NALType extracts the NAL unit type from the first byte of the 2-byte
// HEVC NAL header: forbidden(1) | type(6) | layerID_high(1).
func NALType(firstByte byte) byte {
	return (firstByte >> 1) & 0x3F
}

// isReferencePicture reports whether a trailing/TSA/STSA/RADL/RASL NAL
// carries a reference picture (the odd-numbered types in 0-9).
func isReferencePicture(t byte) bool {
	return t%2 == 1 && t <= 9
}

// IsKeyframe reports whether the NAL type counts toward an access unit's
// keyframe flag: a reference-carrying trailing/TSA/STSA/RADL/RASL picture
// (odd types 1,3,5,7,9) or an IDR/CRA random access point (19-21). BLA
// pictures (16-18) are excluded.
func IsKeyframe(nalType byte) bool {
	if nalType <= 9 {
		return isReferencePicture(nalType)
	}
	return nalType >= NALIDRWRadl && nalType <= NALCraNut
}

func IsVPS(nalType byte) bool { return nalType == NALVPS }
func IsSPS(nalType byte) bool { return nalType == NALSPS }
func IsPPS(nalType byte) bool { return nalType == NALPPS }
func IsAUD(nalType byte) bool { return nalType == NALAUD }

// SPSInfo holds the fields extracted from an HEVC SPS needed for a
// Track's codec configuration.
type SPSInfo struct {
	Width  int
	Height int

	ProfileIDC byte
	TierFlag   byte
	LevelIDC   byte

	ProfileCompatibilityFlags uint32
	ConstraintIndicatorFlags  uint64

	ChromaFormatIdc      byte
	BitDepthLumaMinus8   byte
	BitDepthChromaMinus8 byte
}

// CodecString returns the RFC 6381 codec parameter string, e.g.
// "hev1.1.6.L93.B0".
func (s SPSInfo) CodecString() string {
	tier := "L"
	if s.TierFlag == 1 {
		tier = "H"
	}

	reversed := mathbits.Reverse32(s.ProfileCompatibilityFlags)

	var constraintBytes [6]byte
	for i := 0; i < 6; i++ {
		constraintBytes[i] = byte((s.ConstraintIndicatorFlags >> uint((5-i)*8)) & 0xFF)
	}
	lastNonZero := -1
	for i := 5; i >= 0; i-- {
		if constraintBytes[i] != 0 {
			lastNonZero = i
			break
		}
	}

	codec := fmt.Sprintf("hev1.%d.%X.%s%d", s.ProfileIDC, reversed, tier, s.LevelIDC)
	if lastNonZero >= 0 {
		for i := 0; i <= lastNonZero; i++ {
			codec += fmt.Sprintf(".%X", constraintBytes[i])
		}
	}
	return codec
}

// ParseSPS parses an HEVC SPS NAL unit (including the 2-byte NAL header,
// start code already stripped) into resolution, chroma format, bit
// depths, and profile/tier/level.
func ParseSPS(nalu []byte) (SPSInfo, error) {
	if len(nalu) < 4 {
		return SPSInfo{}, ErrSPSTooShort
	}

	rbsp := bits.RemoveEmulationPrevention(nalu[2:])
	r := bits.NewReader(rbsp)

	if _, err := r.ReadBits(4); err != nil { // sps_video_parameter_set_id
		return SPSInfo{}, err
	}
	maxSubLayersMinus1, err := r.ReadBits(3)
	if err != nil {
		return SPSInfo{}, err
	}
	if _, err := r.ReadBits(1); err != nil { // sps_temporal_id_nesting_flag
		return SPSInfo{}, err
	}

	info := SPSInfo{}
	if err := parseProfileTierLevel(r, &info, maxSubLayersMinus1); err != nil {
		return SPSInfo{}, err
	}

	if _, err := r.ReadUE(); err != nil { // sps_seq_parameter_set_id
		return SPSInfo{}, err
	}

	chromaFormatIdc, err := r.ReadUE()
	if err != nil {
		return SPSInfo{}, err
	}
	info.ChromaFormatIdc = byte(chromaFormatIdc)

	if chromaFormatIdc == 3 {
		if _, err := r.ReadBits(1); err != nil { // separate_colour_plane_flag
			return SPSInfo{}, err
		}
	}

	width, err := r.ReadUE()
	if err != nil {
		return SPSInfo{}, err
	}
	height, err := r.ReadUE()
	if err != nil {
		return SPSInfo{}, err
	}
	info.Width = int(width)
	info.Height = int(height)

	confWindowFlag, err := r.ReadBits(1)
	if err != nil {
		return info, nil
	}
	if confWindowFlag == 1 {
		left, err := r.ReadUE()
		if err != nil {
			return info, nil
		}
		right, err := r.ReadUE()
		if err != nil {
			return info, nil
		}
		top, err := r.ReadUE()
		if err != nil {
			return info, nil
		}
		bottom, err := r.ReadUE()
		if err != nil {
			return info, nil
		}

		var subWidthC, subHeightC uint
		switch chromaFormatIdc {
		case 1:
			subWidthC, subHeightC = 2, 2
		case 2:
			subWidthC, subHeightC = 2, 1
		default:
			subWidthC, subHeightC = 1, 1
		}

		info.Width -= int((left + right) * subWidthC)
		info.Height -= int((top + bottom) * subHeightC)
	}

	bdl, err := r.ReadUE()
	if err != nil {
		return info, nil
	}
	info.BitDepthLumaMinus8 = byte(bdl)

	bdc, err := r.ReadUE()
	if err != nil {
		return info, nil
	}
	info.BitDepthChromaMinus8 = byte(bdc)

	return info, nil
}

func parseProfileTierLevel(r *bits.Reader, info *SPSInfo, maxSubLayersMinus1 uint) error {
	if _, err := r.ReadBits(2); err != nil { // general_profile_space
		return err
	}
	tierFlag, err := r.ReadBits(1)
	if err != nil {
		return err
	}
	info.TierFlag = byte(tierFlag)

	profileIDC, err := r.ReadBits(5)
	if err != nil {
		return err
	}
	info.ProfileIDC = byte(profileIDC)

	hi, err := r.ReadBits(16)
	if err != nil {
		return err
	}
	lo, err := r.ReadBits(16)
	if err != nil {
		return err
	}
	info.ProfileCompatibilityFlags = uint32(hi)<<16 | uint32(lo)

	var cif uint64
	for i := 0; i < 6; i++ {
		b, err := r.ReadBits(8)
		if err != nil {
			return err
		}
		cif = (cif << 8) | uint64(b)
	}
	info.ConstraintIndicatorFlags = cif

	levelIDC, err := r.ReadBits(8)
	if err != nil {
		return err
	}
	info.LevelIDC = byte(levelIDC)

	if maxSubLayersMinus1 > 0 {
		var subLayerProfilePresent, subLayerLevelPresent [8]bool
		for i := uint(0); i < maxSubLayersMinus1; i++ {
			pp, err := r.ReadBits(1)
			if err != nil {
				return err
			}
			subLayerProfilePresent[i] = pp == 1
			lp, err := r.ReadBits(1)
			if err != nil {
				return err
			}
			subLayerLevelPresent[i] = lp == 1
		}
		if maxSubLayersMinus1 < 8 {
			for i := maxSubLayersMinus1; i < 8; i++ {
				if _, err := r.ReadBits(2); err != nil {
					return err
				}
			}
		}
		for i := uint(0); i < maxSubLayersMinus1; i++ {
			if subLayerProfilePresent[i] {
				if _, err := r.ReadBits(32); err != nil {
					return err
				}
				if _, err := r.ReadBits(32); err != nil {
					return err
				}
				if _, err := r.ReadBits(24); err != nil {
					return err
				}
			}
			if subLayerLevelPresent[i] {
				if _, err := r.ReadBits(8); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
