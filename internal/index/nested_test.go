package index

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeName mirrors the helper used in internal/tagtree's own tests.
func writeName(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, uint16(len(s)))
	buf.WriteString(s)
}

// writeStackStringEntry writes the fields of an {id, Count} stack compound
// as a list element: list elements carry no type byte or name of their
// own, and the caller writes the closing TAG_End.
func writeStackStringEntry(buf *bytes.Buffer, id string, count int32) {
	buf.WriteByte(8)
	writeName(buf, "id")
	writeName(buf, id)
	buf.WriteByte(3)
	writeName(buf, "Count")
	binary.Write(buf, binary.BigEndian, count)
}

// buildNestedStorageFile builds a minimal gzip-compressed tagged tree
// shaped like the nested-storage data blob: a root compound with an
// "entries" list, each entry a {uuid, contents} compound.
func buildNestedStorageFile(t *testing.T, dir string) string {
	t.Helper()
	var body bytes.Buffer
	body.WriteByte(10) // root compound
	writeName(&body, "")

	body.WriteByte(9) // list "entries"
	writeName(&body, "entries")
	body.WriteByte(10)                                 // element type: compound
	binary.Write(&body, binary.BigEndian, int32(2))    // 2 entries

	// entry A: uuid "11111111-1111-1111-1111-111111111111", contents: list with a plain emerald stack
	body.WriteByte(8)
	writeName(&body, "uuid")
	writeName(&body, "11111111-1111-1111-1111-111111111111")
	body.WriteByte(9) // list "contents"
	writeName(&body, "contents")
	body.WriteByte(10)
	binary.Write(&body, binary.BigEndian, int32(1))
	writeStackStringEntry(&body, "minecraft:emerald", 9)
	body.WriteByte(0) // end the stack compound
	body.WriteByte(0) // end entry A compound

	// entry B: uuid "22222222-2222-2222-2222-222222222222", contents: list with a backpack
	// stack carrying storage_uuid -> A's uuid, plus its own inline diamond stack.
	body.WriteByte(8)
	writeName(&body, "uuid")
	writeName(&body, "22222222-2222-2222-2222-222222222222")
	body.WriteByte(9)
	writeName(&body, "contents")
	body.WriteByte(10)
	binary.Write(&body, binary.BigEndian, int32(2))

	// backpack stack referencing entry A
	body.WriteByte(8)
	writeName(&body, "id")
	writeName(&body, "storagemod:backpack")
	body.WriteByte(3)
	writeName(&body, "Count")
	binary.Write(&body, binary.BigEndian, int32(1))
	body.WriteByte(8)
	writeName(&body, "storage_uuid")
	writeName(&body, "11111111-1111-1111-1111-111111111111")
	body.WriteByte(0) // end backpack compound

	// inline diamond stack in entry B
	writeStackStringEntry(&body, "minecraft:diamond", 4)
	body.WriteByte(0) // end diamond stack compound

	body.WriteByte(0) // end entry B compound
	body.WriteByte(0) // end root compound

	var compressed bytes.Buffer
	gw := gzip.NewWriter(&compressed)
	_, err := gw.Write(body.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	path := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(path, 0o755))
	full := filepath.Join(path, nestedStorageFile)
	require.NoError(t, os.WriteFile(full, compressed.Bytes(), 0o644))
	return full
}

func TestSeedNestedStorageFollowsBackpackReference(t *testing.T) {
	root := t.TempDir()
	buildNestedStorageFile(t, root)

	roots, err := SeedNestedStorage(root, nil)
	require.NoError(t, err)
	require.Len(t, roots, 2)

	byID := map[string]map[string]int64{}
	for _, r := range roots {
		byID[r.StorageID_] = r.ItemCounts
	}
	require.EqualValues(t, 9, byID["11111111-1111-1111-1111-111111111111"]["minecraft:emerald"])
	// entry B resolves its own diamond plus the backpack's referenced contents (1 backpack -> emerald x9)
	entryB := byID["22222222-2222-2222-2222-222222222222"]
	require.EqualValues(t, 4, entryB["minecraft:diamond"])
	require.EqualValues(t, 9, entryB["minecraft:emerald"])
}

func TestSeedNestedStorageMissingFileIsCodedError(t *testing.T) {
	_, err := SeedNestedStorage(t.TempDir(), nil)
	require.Error(t, err)
}

func TestIsBackpackLike(t *testing.T) {
	require.True(t, isBackpackLike("modname:iron_backpack"))
	require.True(t, isBackpackLike("modname:leather_satchel"))
	require.False(t, isBackpackLike("minecraft:diamond"))
}
