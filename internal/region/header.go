// Package region implements the Region Codec (spec §4.B): opening a
// region file, iterating its 1024-slot sector header, extracting
// compressed chunk payloads and decoding them to tagged trees, and
// pulling block-entity inventories out of a decoded chunk.
//
// The binary layout here has no analogue in the teacher (AIStore has no
// fixed-format container file), so the codec is grounded on the spec's
// own byte-for-byte description (§4.B) rather than adapted teacher code;
// the package-level shape (a stateless decoder returning a result value
// to be handed to a worker-pool job, the way fs.Walk's Callback produces
// values for the caller to act on) follows the teacher's fs package idiom.
package region

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	sectorSize  = 4096
	headerSlots = 1024
)

var regionFileName = regexp.MustCompile(`^r\.(-?\d+)\.(-?\d+)\.mca$`)

// ParseRegionFilename extracts (region_x, region_z) from a region file's
// base name, per spec §4.B. ok is false for names that don't match.
func ParseRegionFilename(base string) (rx, rz int, ok bool) {
	m := regionFileName.FindStringSubmatch(base)
	if m == nil {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(m[1])
	z, errZ := strconv.Atoi(m[2])
	if errX != nil || errZ != nil {
		return 0, 0, false
	}
	return x, z, true
}

// slot is one 4-byte sector-header entry.
type slot struct {
	offsetSectors uint32
	sectorCount   uint8
}

func (s slot) empty() bool { return s.offsetSectors == 0 || s.sectorCount == 0 }

// parseHeader decodes the fixed 4096-byte sector-index header.
func parseHeader(header []byte) ([headerSlots]slot, error) {
	var slots [headerSlots]slot
	if len(header) < sectorSize {
		return slots, fmt.Errorf("region: short header (%d bytes)", len(header))
	}
	for i := 0; i < headerSlots; i++ {
		b := header[i*4 : i*4+4]
		offset := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
		slots[i] = slot{offsetSectors: offset, sectorCount: b[3]}
	}
	return slots, nil
}

func localCoords(slotIndex int) (localX, localZ int) {
	return slotIndex % 32, slotIndex / 32
}
