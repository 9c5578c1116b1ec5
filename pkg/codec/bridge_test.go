package codec

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// decodeFragments drives b the way a byte-sourced adapter does: unconsumed
// bytes are kept and resupplied in front of the next fragment.
func decodeFragments(t *testing.T, b *Bridge, fragments [][]byte, bufSize int) string {
	t.Helper()
	var (
		out     strings.Builder
		pending []byte
		buf     = make([]byte, bufSize)
	)
	feed := func(atEOF bool) {
		for {
			p, err := b.Decode(buf, pending, atEOF)
			require.NoError(t, err)
			out.Write(buf[:p.Produced])
			pending = pending[p.Consumed:]
			if p.Complete {
				return
			}
			if p.NeedMore {
				require.False(t, atEOF, "bridge asked for more input after end of input")
				return
			}
		}
	}
	for _, f := range fragments {
		pending = append(pending, f...)
		feed(false)
	}
	feed(true)
	require.True(t, b.Complete())
	return out.String()
}

func splitRandomly(rng *rand.Rand, data []byte) [][]byte {
	var fragments [][]byte
	for len(data) > 0 {
		n := 1 + rng.IntN(min(len(data), 7))
		fragments = append(fragments, data[:n])
		data = data[n:]
	}
	return fragments
}

func randomText(rng *rand.Rand, n int) string {
	alphabet := []rune("abcXYZ,\"\r\n 0189éßΩжこんにちは€😀𝄞")
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteRune(alphabet[rng.IntN(len(alphabet))])
	}
	return sb.String()
}

func TestBridgeFragmentedMatchesWhole(t *testing.T) {
	encodings := []struct {
		name string
		enc  encoding.Encoding
	}{
		{"utf-8", nil},
		{"utf-8-bom", unicode.UTF8BOM},
		{"utf-16le", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
		{"utf-16be-bom", unicode.UTF16(unicode.BigEndian, unicode.UseBOM)},
	}
	rng := rand.New(rand.NewPCG(7, 11))

	for _, tt := range encodings {
		t.Run(tt.name, func(t *testing.T) {
			for round := 0; round < 50; round++ {
				text := randomText(rng, rng.IntN(200))
				data := []byte(text)
				if tt.enc != nil {
					var err error
					data, err = tt.enc.NewEncoder().Bytes([]byte(text))
					require.NoError(t, err)
				}

				whole, err := NewBridge(tt.enc)
				require.NoError(t, err)
				want := decodeFragments(t, whole, [][]byte{data}, len(data)+carrySize)
				require.Equal(t, text, want)

				for _, size := range []int{1, 2, 3, 4, 5, 31, 32, 64} {
					b, err := NewBridge(tt.enc)
					require.NoError(t, err)
					got := decodeFragments(t, b, splitRandomly(rng, data), size)
					assert.Equal(t, want, got, "buffer size %d", size)
				}
			}
		})
	}
}

func TestBridgeUTF8BOMKeepsReplacementCharacter(t *testing.T) {
	text := "a\uFFFDb,\uFFFD\r\n"
	inputs := map[string][]byte{
		"without mark": []byte(text),
		"with mark":    append([]byte{0xEF, 0xBB, 0xBF}, text...),
	}
	rng := rand.New(rand.NewPCG(3, 5))

	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			for _, size := range []int{1, 2, 3, 5, 32, 64} {
				b, err := NewBridge(unicode.UTF8BOM)
				require.NoError(t, err)
				got := decodeFragments(t, b, splitRandomly(rng, data), size)
				assert.Equal(t, text, got, "buffer size %d", size)
			}
		})
	}

	t.Run("mark split across fragments", func(t *testing.T) {
		b, err := NewBridge(unicode.UTF8BOM)
		require.NoError(t, err)
		got := decodeFragments(t, b, [][]byte{{0xEF}, {0xBB}, {0xBF, 'x'}}, 8)
		assert.Equal(t, "x", got)
	})

	t.Run("invalid bytes still fail", func(t *testing.T) {
		b, err := NewBridge(unicode.UTF8BOM)
		require.NoError(t, err)
		_, err = b.Decode(make([]byte, 64), []byte("\xEF\xBB\xBFab\xffcd"), true)
		assert.ErrorIs(t, err, ErrMalformedInput)
	})
}

func TestBridgeSplitFourByteCharacter(t *testing.T) {
	b, err := NewBridge(nil)
	require.NoError(t, err)

	char := []byte("😀")
	require.Len(t, char, 4)
	buf := make([]byte, 4)

	p, err := b.Decode(buf, char[:2], false)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Produced)
	assert.Equal(t, 0, p.Consumed)
	assert.Equal(t, 2, p.Examined)
	assert.True(t, p.NeedMore)
	assert.False(t, p.Complete)

	p, err = b.Decode(buf, char, false)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Produced)
	assert.Equal(t, 4, p.Consumed)
	assert.Equal(t, char, buf[:p.Produced])

	p, err = b.Decode(buf, nil, true)
	require.NoError(t, err)
	assert.True(t, p.Complete)
	assert.Equal(t, 0, p.Produced)
}

func TestBridgeCompleteIsSticky(t *testing.T) {
	b, err := NewBridge(nil)
	require.NoError(t, err)
	buf := make([]byte, 8)

	p, err := b.Decode(buf, []byte("ab"), true)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Produced)
	assert.True(t, p.Complete)

	p, err = b.Decode(buf, []byte("cd"), true)
	require.NoError(t, err)
	assert.Equal(t, Progress{Complete: true}, p)
}

func TestBridgeCarryDrainsAcrossCalls(t *testing.T) {
	b, err := NewBridge(nil)
	require.NoError(t, err)
	buf := make([]byte, 1)

	src := []byte("€")
	p, err := b.Decode(buf, src, true)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Produced)
	assert.Equal(t, 3, p.Consumed)
	assert.False(t, p.Complete, "staged bytes still pending")

	var got []byte
	got = append(got, buf[0])
	for !p.Complete {
		p, err = b.Decode(buf, nil, true)
		require.NoError(t, err)
		got = append(got, buf[:p.Produced]...)
	}
	assert.Equal(t, src, got)
}

func TestBridgeMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		enc  encoding.Encoding
		src  []byte
	}{
		{"invalid utf-8 byte", nil, []byte("ab\xffcd")},
		{"truncated utf-8 at end", nil, []byte("ab\xe2\x82")},
		{"lone utf-16 surrogate", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), []byte{0x41, 0x00, 0x00, 0xD8, 0x41, 0x00}},
		{"invalid shift_jis", japanese.ShiftJIS, []byte{0x41, 0x81, 0x20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBridge(tt.enc)
			require.NoError(t, err)
			buf := make([]byte, 64)
			_, err = b.Decode(buf, tt.src, true)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedInput)

			var me *MalformedInputError
			require.ErrorAs(t, err, &me)
			assert.GreaterOrEqual(t, me.Offset, int64(0))
		})
	}
}

func TestBridgeDeliversCharactersBeforeUnmappableInput(t *testing.T) {
	src := []byte{'a', 'b', 'c', 0x81, 0x20}

	t.Run("direct", func(t *testing.T) {
		b, err := NewBridge(japanese.ShiftJIS)
		require.NoError(t, err)
		buf := make([]byte, 64)
		p, err := b.Decode(buf, src, true)
		assert.ErrorIs(t, err, ErrMalformedInput)
		assert.Equal(t, "abc", string(buf[:p.Produced]))

		var me *MalformedInputError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, int64(0), me.Offset)

		p, err = b.Decode(buf, src, true)
		assert.ErrorIs(t, err, ErrMalformedInput)
		assert.Equal(t, 0, p.Produced)
	})

	t.Run("staged", func(t *testing.T) {
		b, err := NewBridge(japanese.ShiftJIS)
		require.NoError(t, err)
		buf := make([]byte, 1)
		var got []byte
		for i := 0; i < 10; i++ {
			p, err := b.Decode(buf, src, true)
			got = append(got, buf[:p.Produced]...)
			if err != nil {
				assert.ErrorIs(t, err, ErrMalformedInput)
				break
			}
			require.Positive(t, p.Produced)
		}
		assert.Equal(t, "abc", string(got))
	})
}

func TestBridgeSubstitution(t *testing.T) {
	b, err := NewBridge(nil, WithSubstitution())
	require.NoError(t, err)
	buf := make([]byte, 64)
	p, err := b.Decode(buf, []byte("a\xffb"), true)
	require.NoError(t, err)
	assert.Equal(t, "a�b", string(buf[:p.Produced]))
}

func TestBridgeSingleByteEncoding(t *testing.T) {
	b, err := NewBridge(charmap.Windows1252)
	require.NoError(t, err)
	buf := make([]byte, 64)
	p, err := b.Decode(buf, []byte{'c', 'a', 'f', 0xE9, ',', 0x80}, true)
	require.NoError(t, err)
	assert.Equal(t, "café,€", string(buf[:p.Produced]))
	assert.True(t, p.Complete)
}

func TestBridgeZeroLengthDestination(t *testing.T) {
	b, err := NewBridge(nil)
	require.NoError(t, err)
	p, err := b.Decode(nil, []byte("abc"), false)
	require.NoError(t, err)
	assert.Equal(t, Progress{}, p)
}

func TestBridgeResetCompletes(t *testing.T) {
	b, err := NewBridge(nil)
	require.NoError(t, err)
	buf := make([]byte, 8)
	_, err = b.Decode(buf, []byte{0xF0, 0x9F}, false)
	require.NoError(t, err)

	b.Reset()
	assert.True(t, b.Complete())
	p, err := b.Decode(buf, []byte("x"), true)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Produced)
}
