package console_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guslan/chip8"
	"github.com/guslan/chip8/console"
)

func TestTerminalDisplay(t *testing.T) {
	var out bytes.Buffer
	display := console.NewTerminalDisplayWithOutput(&out)
	display.OnChar = "#"
	display.OffChar = "."

	require.NoError(t, display.Boot())
	assert.Equal(t, "\x1b[1H\x1b[0J", out.String())
	out.Reset()

	m := chip8.NewMachine()
	require.NoError(t, m.Load([]byte{
		0x60, 0x01,
		0xF0, 0x29,
		0xD0, 0x05,
	}))
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Step())
	}
	require.NoError(t, display.Render(m.Framebuffer()))

	rendered := strings.TrimPrefix(out.String(), "\x1b[1H")
	lines := strings.Split(strings.TrimSuffix(rendered, "\n"), "\n")
	require.Len(t, lines, chip8.ScreenHeight)

	// the "1" glyph: 0x20 0x60 0x20 0x20 0x70
	assert.Equal(t, "..#.....", lines[0][:8])
	assert.Equal(t, ".##.....", lines[1][:8])
	assert.Equal(t, ".###....", lines[4][:8])
	assert.Equal(t, strings.Repeat(".", chip8.ScreenWidth)+"|", lines[5])
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestWavBuzzer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beep.wav")
	clock := &fakeClock{now: time.Unix(0, 0)}

	buzzer := console.NewWavBuzzer(path, func(config *console.WavBuzzerConfig) {
		config.Now = clock.Now
	})
	require.NoError(t, buzzer.Boot())

	clock.Advance(100 * time.Millisecond)
	buzzer.Play()
	clock.Advance(100 * time.Millisecond)
	buzzer.Stop()
	clock.Advance(100 * time.Millisecond)
	require.NoError(t, buzzer.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	assert.Equal(t, uint32(console.DefaultSampleRate), dec.SampleRate)
	assert.Equal(t, uint16(1), dec.NumChans)

	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	const tenth = console.DefaultSampleRate / 10
	require.Len(t, buf.Data, 3*tenth)

	level := int(console.DefaultTone.Volume * math.MaxInt16)
	for i, sample := range buf.Data {
		switch {
		case i < tenth || i >= 2*tenth:
			require.Zero(t, sample, "sample %d", i)
		default:
			require.Equal(t, level, max(sample, -sample), "sample %d", i)
		}
	}
	assert.Equal(t, level, buf.Data[tenth])
}

func TestWavBuzzer_BootFails(t *testing.T) {
	buzzer := console.NewWavBuzzer(filepath.Join(t.TempDir(), "missing", "beep.wav"))

	assert.Error(t, buzzer.Boot())
	assert.NoError(t, buzzer.Close())
}

func TestTerminalKeyboard(t *testing.T) {
	m := chip8.NewMachine()
	kb := console.NewTerminalKeyboard(m, chip8.DefaultKeyboardLayout)

	var unmapped []rune
	kb.Unmapped = func(r rune) {
		unmapped = append(unmapped, r)
	}

	start := time.Unix(0, 0)
	kb.Feed([]byte("1wP"), start)
	assert.True(t, m.Key(0x1))
	assert.True(t, m.Key(0x5))
	assert.Equal(t, []rune{'P'}, unmapped)

	kb.Expire(start.Add(console.DefaultReleaseAfter / 2))
	assert.True(t, m.Key(0x1))

	// a repeat keeps the key pressed
	kb.Feed([]byte("1"), start.Add(console.DefaultReleaseAfter/2))
	kb.Expire(start.Add(console.DefaultReleaseAfter))
	assert.True(t, m.Key(0x1))
	assert.False(t, m.Key(0x5))

	kb.Expire(start.Add(2 * console.DefaultReleaseAfter))
	assert.False(t, m.Key(0x1))
	assert.Zero(t, m.Keypad().Mask())
}

func TestTerminalKeyboard_UpperCase(t *testing.T) {
	m := chip8.NewMachine()
	kb := console.NewTerminalKeyboard(m, chip8.DefaultKeyboardLayout)

	kb.Feed([]byte("V"), time.Now())
	assert.True(t, m.Key(0xF))
}
