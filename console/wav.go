package console

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavBitDepth = 16

type WavBuzzerConfig struct {
	Tone       Tone
	SampleRate int
	// Now is the clock used to measure how long the buzzer plays
	Now func() time.Time
}

type WavBuzzerConfigCb func(config *WavBuzzerConfig)

// WavBuzzer records the buzzer to a mono 16-bit WAV file. Silence is
// recorded between tones so the file keeps the timing of the program.
// The file is complete once Close returns.
type WavBuzzer struct {
	mu sync.Mutex

	path       string
	tone       Tone
	sampleRate int
	now        func() time.Time

	file *os.File
	enc  *wav.Encoder

	start   time.Time
	written int
	playing bool
	phase   int

	err error
}

func NewWavBuzzer(path string, configs ...WavBuzzerConfigCb) *WavBuzzer {
	config := &WavBuzzerConfig{
		Tone:       DefaultTone,
		SampleRate: DefaultSampleRate,
		Now:        time.Now,
	}
	for _, cb := range configs {
		cb(config)
	}

	return &WavBuzzer{
		path:       path,
		tone:       config.Tone,
		sampleRate: config.SampleRate,
		now:        config.Now,
	}
}

// Boot implements Buzzer.
func (b *WavBuzzer) Boot() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.enc != nil {
		return nil
	}

	f, err := os.Create(b.path)
	if err != nil {
		return fmt.Errorf("wav buzzer: %w", err)
	}

	b.file = f
	b.enc = wav.NewEncoder(f, b.sampleRate, wavBitDepth, 1, 1)
	b.start = b.now()

	slog.Info("Recording audio", slog.String("path", b.path))

	return nil
}

// Play implements Buzzer.
func (b *WavBuzzer) Play() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance()
	b.playing = true
}

// Stop implements Buzzer.
func (b *WavBuzzer) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance()
	b.playing = false
}

// Close writes the pending samples and the WAV header.
func (b *WavBuzzer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.enc == nil {
		return b.err
	}

	b.advance()

	errs := []error{b.err}
	if err := b.enc.Close(); err != nil {
		errs = append(errs, fmt.Errorf("wav buzzer: %w", err))
	}
	if err := b.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("wav buzzer: %w", err))
	}
	b.enc = nil

	return errors.Join(errs...)
}

// advance records the samples between the last call and now,
// tone or silence depending on the current state.
func (b *WavBuzzer) advance() {
	if b.enc == nil || b.err != nil {
		return
	}

	elapsed := b.now().Sub(b.start)
	target := int(elapsed * time.Duration(b.sampleRate) / time.Second)
	n := target - b.written
	if n <= 0 {
		return
	}

	amplitude := float64(math.MaxInt16)
	data := make([]int, n)
	if b.playing {
		for i := range data {
			data[i] = int(b.tone.Level(b.phase, b.sampleRate) * amplitude)
			b.phase++
		}
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  b.sampleRate,
		},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := b.enc.Write(buf); err != nil {
		b.err = fmt.Errorf("wav buzzer: %w", err)
		slog.Error("Error recording audio", slog.Any("error", err))
		return
	}

	b.written = target
}
