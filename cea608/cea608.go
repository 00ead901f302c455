// Package cea608 extracts raw CEA-608/708 caption byte payloads from
// H.264/HEVC SEI NAL units carrying ATSC A/53 user_data_registered_itu_t_t35
// (the "GA94" signature). No attempt is made to decode the bytes into
// caption text or control codes; the caller inserts them into the text
// track sorted by PTS.
package cea608

import "github.com/driftline/tsdemux/bits"

const (
	payloadTypeUserDataT35 = 4

	countryCodeUS   = 181
	providerATSC    = 49
	userDataTypeCC  = 3
)

var ga94Signature = [4]byte{'G', 'A', '9', '4'}

// Sample is one extracted caption payload. Type is always 3, matching
// the text-track sample shape.
type Sample struct {
	Type byte
	Data []byte
}

// ExtractFromSEI walks every (payload_type, payload_size) pair in an
// SEI NAL unit (start code stripped, NAL header byte included) and
// returns every GA94-signed user_data_registered_itu_t_t35 payload found,
// as raw bytes. It iterates until fewer than 2 bytes remain, rather than
// stopping after the first payload.
func ExtractFromSEI(seiNALU []byte) []Sample {
	if len(seiNALU) < 2 {
		return nil
	}
	rbsp := bits.RemoveEmulationPrevention(seiNALU[1:])

	var samples []Sample
	i := 0
	for i+1 < len(rbsp) {
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
		payload := rbsp[i : i+payloadSize]

		if payloadType == payloadTypeUserDataT35 {
			if s, ok := extractGA94(payload); ok {
				samples = append(samples, s)
			}
		}

		i += payloadSize
	}

	return samples
}

func extractGA94(payload []byte) (Sample, bool) {
	if len(payload) < 9 {
		return Sample{}, false
	}
	if payload[0] != countryCodeUS {
		return Sample{}, false
	}
	providerCode := int(payload[1])<<8 | int(payload[2])
	if providerCode != providerATSC {
		return Sample{}, false
	}
	var sig [4]byte
	copy(sig[:], payload[3:7])
	if sig != ga94Signature {
		return Sample{}, false
	}
	if payload[7] != userDataTypeCC {
		return Sample{}, false
	}

	totalCCs := int(payload[8] & 0x1F)
	n := totalCCs*3 + 2
	if 8+n > len(payload) {
		return Sample{}, false
	}

	return Sample{Type: 3, Data: append([]byte{}, payload[8:8+n]...)}, true
}
