package hevc

import "testing"

func TestNALType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		firstByte byte
		want      byte
	}{
		{"VPS (32)", 0x40, NALVPS},
		{"SPS (33)", 0x42, NALSPS},
		{"PPS (34)", 0x44, NALPPS},
		{"IDR_W_RADL (19)", 0x26, NALIDRWRadl},
		{"IDR_N_LP (20)", 0x28, NALIDRNlp},
		{"CRA (21)", 0x2A, NALCraNut},
		{"BLA_W_LP (16)", 0x20, NALBlaWLP},
		{"TRAIL_R (1)", 0x02, 1},
		{"TRAIL_N (0)", 0x00, 0},
		{"SEI_PREFIX (39)", 0x4E, NALSEIPrefix},
		{"AUD (35)", 0x46, NALAUD},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NALType(tt.firstByte); got != tt.want {
				t.Errorf("NALType(0x%02X) = %d, want %d", tt.firstByte, got, tt.want)
			}
		})
	}
}

// TestIsKeyframe checks that IDR/CRA random access points (19-21) and
// odd-numbered reference-carrying trailing/TSA/STSA/RADL/RASL pictures
// (1,3,5,7,9) are key; BLA pictures (16-18) are explicitly not, despite
// conventionally being random-access points.
func TestIsKeyframe(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		nalType byte
		want    bool
	}{
		{"TRAIL_N (0)", 0, false},
		{"TRAIL_R (1)", 1, true},
		{"TSA_N (2)", 2, false},
		{"TSA_R (3)", 3, true},
		{"RASL_R (9)", 9, true},
		{"BLA_W_LP (16)", NALBlaWLP, false},
		{"BLA type 17", 17, false},
		{"BLA_N_LP (18)", 18, false},
		{"IDR_W_RADL", NALIDRWRadl, true},
		{"IDR_N_LP", NALIDRNlp, true},
		{"CRA", NALCraNut, true},
		{"VPS", NALVPS, false},
		{"SPS", NALSPS, false},
		{"PPS", NALPPS, false},
		{"SEI", NALSEIPrefix, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsKeyframe(tt.nalType); got != tt.want {
				t.Errorf("IsKeyframe(%d) = %v, want %v", tt.nalType, got, tt.want)
			}
		})
	}
}

func TestParseSPS(t *testing.T) {
	t.Parallel()
	// Hand-constructed HEVC SPS for Main profile, 320x240, Level 3.1.
	sps := []byte{
		0x42, 0x01, // NAL header (type=33, layer=0, tid=1)
		0x01,
		0x01,
		0x40, 0x00, 0x00, 0x00,
		0xB0, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x5D,
		0xA0, 0x0A, 0x08, 0x0F, 0x10,
	}

	info, err := ParseSPS(sps)
	if err != nil {
		t.Fatalf("ParseSPS error: %v", err)
	}

	if info.Width != 320 {
		t.Errorf("Width: got %d, want 320", info.Width)
	}
	if info.Height != 240 {
		t.Errorf("Height: got %d, want 240", info.Height)
	}
	if info.ProfileIDC != 1 {
		t.Errorf("ProfileIDC: got %d, want 1", info.ProfileIDC)
	}
	if info.LevelIDC != 93 {
		t.Errorf("LevelIDC: got %d, want 93", info.LevelIDC)
	}
}

func TestSPSInfo_CodecString(t *testing.T) {
	t.Parallel()
	info := SPSInfo{
		ProfileIDC:                1,
		TierFlag:                  0,
		LevelIDC:                  93,
		ProfileCompatibilityFlags: 0x40000000,
		ConstraintIndicatorFlags:  0xB00000000000,
	}

	if got, want := info.CodecString(), "hev1.1.2.L93.B0"; got != want {
		t.Errorf("CodecString() = %q, want %q", got, want)
	}
}

func TestSPSInfo_CodecStringHighTier(t *testing.T) {
	t.Parallel()
	info := SPSInfo{
		ProfileIDC:                2,
		TierFlag:                  1,
		LevelIDC:                  120,
		ProfileCompatibilityFlags: 0x20000000,
	}

	if got, want := info.CodecString(), "hev1.2.4.H120"; got != want {
		t.Errorf("CodecString() = %q, want %q", got, want)
	}
}

func TestParseSPS_TooShort(t *testing.T) {
	t.Parallel()
	if _, err := ParseSPS([]byte{0x42, 0x01, 0x01}); err != ErrSPSTooShort {
		t.Errorf("got %v, want ErrSPSTooShort", err)
	}
	if _, err := ParseSPS(nil); err != ErrSPSTooShort {
		t.Errorf("got %v, want ErrSPSTooShort", err)
	}
}

func TestIsVPSSPSPPSAUD(t *testing.T) {
	t.Parallel()
	if !IsVPS(NALVPS) || IsVPS(NALSPS) {
		t.Error("IsVPS mismatch")
	}
	if !IsSPS(NALSPS) || IsSPS(NALPPS) {
		t.Error("IsSPS mismatch")
	}
	if !IsPPS(NALPPS) || IsPPS(NALVPS) {
		t.Error("IsPPS mismatch")
	}
	if !IsAUD(NALAUD) || IsAUD(NALVPS) {
		t.Error("IsAUD mismatch")
	}
}
