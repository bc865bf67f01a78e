package region

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	kgzip "github.com/klauspost/compress/gzip"
	kzlib "github.com/klauspost/compress/zlib"

	"github.com/loopwic/lattice-scan/internal/cmn"
	"github.com/loopwic/lattice-scan/internal/nlog"
	"github.com/loopwic/lattice-scan/internal/tagtree"
)

// Chunk is one successfully decoded chunk payload.
type Chunk struct {
	LocalX, LocalZ int
	Tree           *tagtree.Value
}

// Result is the outcome of decoding one region file: the successfully
// decoded chunks plus a count of chunks skipped for any of the
// recoverable reasons spec §4.B / §8 enumerate. A region file with zero
// usable chunks is still a successful Result, never an error — only I/O
// failure to open/read the region file itself is an error.
type Result struct {
	RegionX, RegionZ int
	Chunks           []Chunk
	Skipped          int
}

// ReadRegion opens path, iterates its header, and decodes every non-empty
// slot's chunk payload (spec §4.B). Recoverable per-chunk faults (bad
// compression byte, truncated payload, tag-tree parse failure, missing
// .mcc sidecar) increment Skipped and move on to the next slot; only a
// failure to open or read the region file itself is returned as an error.
func ReadRegion(path string, regionX, regionZ int) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	header := make([]byte, sectorSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return Result{}, fmt.Errorf("region: reading header of %s: %w", path, err)
	}
	slots, err := parseHeader(header)
	if err != nil {
		return Result{}, err
	}

	res := Result{RegionX: regionX, RegionZ: regionZ}
	dir := filepath.Dir(path)

	for i, s := range slots {
		if s.empty() {
			continue
		}
		localX, localZ := localCoords(i)
		tree, ok := decodeSlot(f, dir, regionX, regionZ, localX, localZ, s)
		if !ok {
			res.Skipped++
			continue
		}
		res.Chunks = append(res.Chunks, Chunk{LocalX: localX, LocalZ: localZ, Tree: tree})
	}
	return res, nil
}

// logIOFault escalates to an error-level log when the underlying cause
// looks like a genuine storage fault rather than an ordinary truncated
// or malformed chunk; either way the slot is still only ever skipped,
// never aborts the region (spec §4.B/§8).
func logIOFault(what string, offsetSectors uint32, err error) {
	if cmn.IsSevereIOError(err) {
		nlog.Errorf("region: %s at sector %d: %v", what, offsetSectors, err)
		return
	}
	nlog.Warningf("region: %s at sector %d: %v", what, offsetSectors, err)
}

func decodeSlot(f *os.File, dir string, regionX, regionZ, localX, localZ int, s slot) (*tagtree.Value, bool) {
	offset := int64(s.offsetSectors) * sectorSize
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		logIOFault("seek", s.offsetSectors, err)
		return nil, false
	}

	var prefix [5]byte
	if _, err := io.ReadFull(f, prefix[:]); err != nil {
		if cmn.IsSevereIOError(err) {
			logIOFault("read chunk length prefix", s.offsetSectors, err)
		}
		return nil, false
	}
	storedLength := binary.BigEndian.Uint32(prefix[:4])
	if storedLength <= 1 {
		return nil, false
	}
	compressionByte := prefix[4]
	compressionType := compressionByte & 0x7F
	external := compressionByte&0x80 != 0

	var payload []byte
	if external {
		mccPath := filepath.Join(dir, fmt.Sprintf("c.%d.%d.mcc", regionX*32+localX, regionZ*32+localZ))
		b, err := os.ReadFile(mccPath)
		if err != nil {
			nlog.Warningf("region: externalised chunk sidecar missing: %s", mccPath)
			return nil, false
		}
		payload = b
	} else {
		payloadLen := int64(storedLength) - 1
		maxLen := int64(s.sectorCount)*sectorSize - 1
		if maxLen < payloadLen {
			payloadLen = maxLen
		}
		if payloadLen <= 0 {
			return nil, false
		}
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(f, payload); err != nil {
			if cmn.IsSevereIOError(err) {
				logIOFault("read chunk payload", s.offsetSectors, err)
			}
			return nil, false
		}
	}

	decompressed, err := decompress(compressionType, payload)
	if err != nil {
		nlog.Warningf("region: decompress chunk (%d,%d) type=%d: %v", localX, localZ, compressionType, err)
		return nil, false
	}

	tree, err := tagtree.Decode(decompressed)
	if err != nil {
		nlog.Warningf("region: parse chunk (%d,%d): %v", localX, localZ, err)
		return nil, false
	}
	return tree, true
}

// decompress dispatches on the compression type byte (spec §4.B step 5).
// Any value outside {1,2,3} returns an error, which the caller handles
// like any other decompression failure: the chunk is logged and skipped.
func decompress(compressionType byte, payload []byte) (io.Reader, error) {
	switch compressionType {
	case 1:
		gr, err := kgzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		return gr, nil
	case 2:
		zr, err := kzlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		return zr, nil
	case 3:
		return bytes.NewReader(payload), nil
	default:
		return nil, fmt.Errorf("unsupported compression type %d", compressionType)
	}
}
