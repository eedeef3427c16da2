package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/block"
)

func TestEncodeDecode_AllKinds(t *testing.T) {
	t.Parallel()

	rec, err := block.New(block.TypeForward, 0, 0, 0, "forward", block.NewSerialSource([2]byte{1, 2}))
	require.NoError(t, err)
	addr := bloco.Addr{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01}

	messages := []Message{
		ProgramStart{Count: 3},
		BlockData{Index: 1, Record: rec},
		ProgramEnd{},
		ProgramAck{Count: 3},
		PairRequest{Addr: addr},
		PairAck{Addr: addr},
		Unpair{},
	}

	for _, msg := range messages {
		raw := Encode(msg)
		decoded, err := Decode(raw)
		require.NoError(t, err, "%T", msg)
		assert.Equal(t, msg, decoded, "%T", msg)
	}
}

func TestDecode_WrongLengthIsMalformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"start missing count", []byte{MsgProgramStart}},
		{"ack missing count", []byte{MsgProgramAck}},
		{"block data truncated", []byte{MsgBlockData, 0, 1, 2, 3}},
		{"pair request short addr", []byte{MsgPairRequest, 1, 2, 3}},
		{"pair ack short addr", []byte{MsgPairAck, 1, 2, 3, 4, 5}},
		{"unknown discriminant", []byte{0x7F}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tc.data)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestEncode_Discriminants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0x01), Encode(ProgramStart{})[0])
	assert.Equal(t, byte(0x02), Encode(BlockData{})[0])
	assert.Equal(t, byte(0x03), Encode(ProgramEnd{})[0])
	assert.Equal(t, byte(0x04), Encode(ProgramAck{})[0])
	assert.Equal(t, byte(0x10), Encode(PairRequest{})[0])
	assert.Equal(t, byte(0x11), Encode(PairAck{})[0])
	assert.Equal(t, byte(0x12), Encode(Unpair{})[0])

	// BLOCK_DATA is the largest message and still fits the link budget.
	assert.Len(t, Encode(BlockData{}), 2+block.RecordSize)
}
