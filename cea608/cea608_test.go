package cea608

import (
	"bytes"
	"testing"
)

// buildSEI builds an SEI NAL unit (type 6) with a single GA94 payload
// carrying totalCCs caption triples.
func buildSEI(totalCCs int) ([]byte, []byte) {
	ccData := make([]byte, totalCCs*3)
	for i := range ccData {
		ccData[i] = byte(0x10 + i)
	}

	payload := []byte{181, 0x00, 49, 'G', 'A', '9', '4', 3, byte(totalCCs & 0x1F), 0xFF}
	payload = append(payload, ccData...)

	nal := []byte{0x06} // NAL header, type 6
	nal = append(nal, byte(4))            // payload_type = 4
	nal = append(nal, byte(len(payload))) // payload_size
	nal = append(nal, payload...)
	nal = append(nal, 0x80) // rbsp_trailing_bits

	return nal, payload[8 : 8+totalCCs*3+2]
}

func TestExtractFromSEI_GA94(t *testing.T) {
	t.Parallel()
	nal, wantData := buildSEI(2)

	samples := ExtractFromSEI(nal)
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	if samples[0].Type != 3 {
		t.Errorf("Type = %d, want 3", samples[0].Type)
	}
	if !bytes.Equal(samples[0].Data, wantData) {
		t.Errorf("Data = %X, want %X", samples[0].Data, wantData)
	}
}

func TestExtractFromSEI_MultiplePayloads(t *testing.T) {
	t.Parallel()
	// A non-GA94 payload (payload_type=5) followed by a GA94 payload;
	// the extractor must not stop after the first pair.
	other := []byte{0x01, 0x02, 0x03}
	nal := []byte{0x06, 5, byte(len(other))}
	nal = append(nal, other...)

	ga94NAL, wantData := buildSEI(1)
	nal = append(nal, ga94NAL[1:len(ga94NAL)-1]...) // strip leading header + trailing bits
	nal = append(nal, 0x80)

	samples := ExtractFromSEI(nal)
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	if !bytes.Equal(samples[0].Data, wantData) {
		t.Errorf("Data = %X, want %X", samples[0].Data, wantData)
	}
}

func TestExtractFromSEI_WrongSignature(t *testing.T) {
	t.Parallel()
	payload := []byte{181, 0x00, 49, 'X', 'X', 'X', 'X', 3, 0x01, 0xFF, 0x10, 0x11, 0x12}
	nal := []byte{0x06, 4, byte(len(payload))}
	nal = append(nal, payload...)
	nal = append(nal, 0x80)

	samples := ExtractFromSEI(nal)
	if len(samples) != 0 {
		t.Errorf("got %d samples, want 0 for non-GA94 payload", len(samples))
	}
}
