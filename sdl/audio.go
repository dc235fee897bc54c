package sdl

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/guslan/chip8/console"
)

const (
	sampleRate = 22050
	// samples of one console frame
	frameSamples = sampleRate / console.FrameRate
	// frames kept queued while the tone plays
	queuedFrames = 3
)

// QueueBuzzer plays the tone through an SDL audio queue. Play and Stop may
// be called from any goroutine, Update must run on the SDL thread once per
// frame.
type QueueBuzzer struct {
	tone console.Tone

	device  sdl.AudioDeviceID
	silence uint8

	on     atomic.Bool
	queued bool
	phase  int
}

func NewQueueBuzzer(tone console.Tone) *QueueBuzzer {
	return &QueueBuzzer{
		tone:    tone,
		silence: 0x80,
	}
}

// Boot implements console.Buzzer. SDL_INIT_AUDIO must have been initialized.
func (b *QueueBuzzer) Boot() error {
	spec := &sdl.AudioSpec{
		Freq:     sampleRate,
		Format:   sdl.AUDIO_U8,
		Channels: 1,
		Samples:  512,
	}

	var actualSpec sdl.AudioSpec
	id, err := sdl.OpenAudioDevice("", false, spec, &actualSpec, 0)
	if err != nil {
		return fmt.Errorf("sdl audio: %w", err)
	}

	b.device = id
	b.silence = actualSpec.Silence
	sdl.PauseAudioDevice(b.device, false)

	return nil
}

// Play implements console.Buzzer.
func (b *QueueBuzzer) Play() {
	b.on.Store(true)
}

// Stop implements console.Buzzer.
func (b *QueueBuzzer) Stop() {
	b.on.Store(false)
}

// Update tops up the queue while the buzzer is on and drops it once off.
func (b *QueueBuzzer) Update() error {
	if b.device == 0 {
		return nil
	}

	if !b.on.Load() {
		if b.queued {
			sdl.ClearQueuedAudio(b.device)
			b.queued = false
		}
		return nil
	}

	for sdl.GetQueuedAudioSize(b.device) < queuedFrames*frameSamples {
		if err := sdl.QueueAudio(b.device, b.samples(frameSamples)); err != nil {
			return err
		}
	}
	b.queued = true

	return nil
}

// samples synthesizes the next n unsigned 8-bit samples of the tone.
func (b *QueueBuzzer) samples(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		level := b.tone.Level(b.phase, sampleRate) * math.MaxInt8
		buf[i] = byte(int(b.silence) + int(level))
		b.phase++
	}
	return buf
}

func (b *QueueBuzzer) Close() {
	if b.device != 0 {
		sdl.CloseAudioDevice(b.device)
		b.device = 0
	}
}
