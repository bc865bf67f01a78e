package tagtree

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeName writes a tag name (or string payload) into buf: a big-endian
// uint16 length followed by the bytes.
func writeName(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, uint16(len(s)))
	buf.WriteString(s)
}

func TestDecodeSimpleCompound(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(KindCompound))
	writeName(&buf, "root")

	// "id" -> TAG_String "minecraft:diamond"
	buf.WriteByte(byte(KindString))
	writeName(&buf, "id")
	writeName(&buf, "minecraft:diamond")

	// "Count" -> TAG_Int 5
	buf.WriteByte(byte(KindInt))
	writeName(&buf, "Count")
	binary.Write(&buf, binary.BigEndian, int32(5))

	buf.WriteByte(byte(KindEnd)) // close compound

	v, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, KindCompound, v.Kind)
	idStr, ok := v.Get("id").AsString()
	require.True(t, ok)
	require.Equal(t, "minecraft:diamond", idStr)
	count, ok := v.Get("Count").AsInt64()
	require.True(t, ok)
	require.EqualValues(t, 5, count)
}

func TestDecodeListOfCompounds(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(byte(KindCompound))
	writeName(&buf, "")

	buf.WriteByte(byte(KindList))
	writeName(&buf, "Items")
	buf.WriteByte(byte(KindCompound))              // element type
	binary.Write(&buf, binary.BigEndian, int32(1)) // 1 element

	// one compound element: {id: "minecraft:stick", Count: 64}
	buf.WriteByte(byte(KindString))
	writeName(&buf, "id")
	writeName(&buf, "minecraft:stick")
	buf.WriteByte(byte(KindByte))
	writeName(&buf, "Count")
	buf.WriteByte(64)
	buf.WriteByte(byte(KindEnd))

	buf.WriteByte(byte(KindEnd)) // close root compound

	v, err := Decode(&buf)
	require.NoError(t, err)
	items := v.Get("Items")
	require.Equal(t, KindList, items.Kind)
	require.Len(t, items.List, 1)
	count, _ := items.List[0].Get("Count").AsInt64()
	require.EqualValues(t, 64, count)
}

func TestDecodeTruncatedStreamErrors(t *testing.T) {
	buf := bytes.NewBuffer([]byte{byte(KindCompound)}) // missing name length bytes
	_, err := Decode(buf)
	require.Error(t, err)
}
