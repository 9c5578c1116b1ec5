package quoting

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xyproto/randomstring"
)

type scanFunc func(*triggers, []byte) int

var scans = map[string]scanFunc{
	"direct":   directScan,
	"filtered": filteredScan,
	"vector":   vectorScan,
}

// naiveScan is the reference every strategy is checked against.
func naiveScan(t *triggers, text []byte) int {
	for i, c := range text {
		if bytes.IndexByte(t.set[:t.n], c) >= 0 {
			return i
		}
	}
	return -1
}

func mustNew(t testing.TB, sep byte, opts ...Option) *Detector {
	t.Helper()
	d, err := New(sep, opts...)
	require.NoError(t, err)
	return d
}

func TestFirstTriggerIndexScenario(t *testing.T) {
	for _, strategy := range []Strategy{Auto, Direct, Filtered, Vector} {
		t.Run(strategy.String(), func(t *testing.T) {
			d := mustNew(t, ',', WithQuote('"'), WithStrategy(strategy))
			assert.Equal(t, 1, d.FirstTriggerIndexString("a,b"))
			assert.Equal(t, -1, d.FirstTriggerIndexString("hello"))
			assert.Equal(t, 1, d.FirstTriggerIndexString("x\r\ny"))
			assert.Equal(t, -1, d.FirstTriggerIndex(nil))
			assert.Equal(t, 3, d.FirstTriggerIndexString(`say"hi"`))
			assert.True(t, d.NeedsQuoting([]byte("line\n")))
			assert.False(t, d.NeedsQuoting([]byte("Zürich")))
		})
	}
}

// randomText builds n bytes where each byte is a trigger with the given
// probability. Non-trigger bytes include UTF-8 continuation bytes and bytes
// that collide with triggers in the filter bitset.
func randomText(rng *rand.Rand, t *triggers, n int, density float64) []byte {
	var fillers []byte
	for c := 0; c < 256; c++ {
		if bytes.IndexByte(t.set[:t.n], byte(c)) < 0 {
			fillers = append(fillers, byte(c))
		}
	}
	text := make([]byte, n)
	for i := range text {
		if rng.Float64() < density {
			text[i] = t.set[rng.IntN(t.n)]
		} else {
			text[i] = fillers[rng.IntN(len(fillers))]
		}
	}
	return text
}

func TestStrategiesAgree(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	detectors := []*Detector{
		mustNew(t, ','),
		mustNew(t, ',', WithQuote('"')),
		mustNew(t, ';', WithQuote('\''), WithEscape('\\')),
		mustNew(t, '\t', WithQuote('"'), WithEscape('"')),
		mustNew(t, 'l', WithQuote(','), WithEscape(0)),
	}
	densities := []float64{0, 0.0005, 0.01, 0.1, 0.5, 1}

	for _, d := range detectors {
		for _, density := range densities {
			for n := 0; n < 3000; n += 1 + n/8 {
				text := randomText(rng, &d.trig, n, density)
				want := naiveScan(&d.trig, text)
				for name, scan := range scans {
					require.Equal(t, want, scan(&d.trig, text),
						"%s triggers=%q density=%v len=%d", name, d.Triggers(), density, n)
				}
				require.Equal(t, want, d.FirstTriggerIndex(text))
			}
		}
	}
}

func TestStrategiesFindEveryPosition(t *testing.T) {
	d := mustNew(t, ',', WithQuote('"'), WithEscape('\\'))
	base := []byte(strings.Repeat("abcdefgh", 13))
	for _, c := range d.Triggers() {
		for pos := range base {
			text := bytes.Clone(base)
			text[pos] = c
			for name, scan := range scans {
				require.Equal(t, pos, scan(&d.trig, text), "%s trigger=%q pos=%d", name, c, pos)
			}
		}
	}
}

func TestStrategiesOnHumanText(t *testing.T) {
	d := mustNew(t, ',', WithQuote('"'))
	for i := 0; i < 200; i++ {
		text := []byte(randomstring.HumanFriendlyEnglishString(1 + i*7))
		if i%3 == 0 {
			text = append(text, ",tail"...)
		}
		want := naiveScan(&d.trig, text)
		for name, scan := range scans {
			require.Equal(t, want, scan(&d.trig, text), "%s: %q", name, text)
		}
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New('\n')
	assert.ErrorIs(t, err, ErrInvalidSeparator)
	_, err = New('\r')
	assert.ErrorIs(t, err, ErrInvalidSeparator)
	_, err = New(0xC3)
	assert.ErrorIs(t, err, ErrNonASCIITrigger)
	_, err = New(',', WithQuote(0x80))
	assert.ErrorIs(t, err, ErrNonASCIITrigger)
	_, err = New(',', WithEscape(0xFF))
	assert.ErrorIs(t, err, ErrNonASCIITrigger)
	_, err = New(',', WithStrategy(Strategy(42)))
	assert.Error(t, err)
	_, err = New(',', WithThresholds(-1, 0))
	assert.Error(t, err)
}

func TestTriggersAreDeduplicated(t *testing.T) {
	d := mustNew(t, ',', WithQuote('"'), WithEscape('"'))
	assert.Equal(t, []byte("\r\n,\""), d.Triggers())
}

func TestDispatch(t *testing.T) {
	d := mustNew(t, ',', WithThresholds(4, 100))
	assert.Equal(t, Direct, d.pick(3))
	assert.Equal(t, Filtered, d.pick(50))
	if vectorAvailable {
		assert.Equal(t, Vector, d.pick(100))
	} else {
		assert.Equal(t, Filtered, d.pick(100))
	}

	forced := mustNew(t, ',', WithStrategy(Direct))
	assert.Equal(t, Direct, forced.pick(10_000))
}

func TestNonASCIITextIsNeverSplit(t *testing.T) {
	d := mustNew(t, ',', WithQuote('"'))
	text := []byte(strings.Repeat("日本語Ωé😀", 20) + ",")
	for name, scan := range scans {
		i := scan(&d.trig, text)
		require.Equal(t, len(text)-1, i, name)
	}
}

func BenchmarkFirstTriggerIndex(b *testing.B) {
	d := mustNew(b, ',', WithQuote('"'))
	rng := rand.New(rand.NewPCG(1, 1))
	for _, n := range []int{8, 64, 1024} {
		text := randomText(rng, &d.trig, n, 0)
		for name, scan := range scans {
			b.Run(fmt.Sprintf("%s/%d", name, n), func(b *testing.B) {
				b.SetBytes(int64(n))
				for i := 0; i < b.N; i++ {
					scan(&d.trig, text)
				}
			})
		}
	}
}
