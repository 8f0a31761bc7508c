package recording

import "encoding/binary"

// WAVChannels reads the channel count from the fmt chunk of a RIFF/WAVE
// file. ok is false when data is not a well-formed WAV header.
func WAVChannels(data []byte) (channels int, ok bool) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, false
	}

	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8

		if id == "fmt " {
			if size < 16 || body+16 > len(data) {
				return 0, false
			}
			return int(binary.LittleEndian.Uint16(data[body+2 : body+4])), true
		}

		// chunks are word aligned
		off = body + size + size%2
	}
	return 0, false
}

func isStereoWAV(data []byte) bool {
	n, ok := WAVChannels(data)
	return ok && n == 2
}
