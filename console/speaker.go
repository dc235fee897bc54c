package console

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

type SpeakerBuzzerConfig struct {
	Tone Tone
	// Sample is an optional MP3 file looped instead of the square wave
	Sample string
}

type SpeakerBuzzerConfigCb func(config *SpeakerBuzzerConfig)

// SpeakerBuzzer plays on the default audio device.
type SpeakerBuzzer struct {
	tone   Tone
	sample string

	on    atomic.Bool
	phase int
	// looped sample, nil for the square wave
	source beep.Streamer
}

func NewSpeakerBuzzer(configs ...SpeakerBuzzerConfigCb) *SpeakerBuzzer {
	config := &SpeakerBuzzerConfig{
		Tone: DefaultTone,
	}
	for _, cb := range configs {
		cb(config)
	}

	return &SpeakerBuzzer{
		tone:   config.Tone,
		sample: config.Sample,
	}
}

// Boot implements Buzzer.
func (b *SpeakerBuzzer) Boot() error {
	sr := beep.SampleRate(DefaultSampleRate)

	if b.sample != "" {
		source, err := loadSample(b.sample, sr)
		if err != nil {
			return err
		}
		b.source = source
	}

	if err := speaker.Init(sr, sr.N(time.Second/30)); err != nil {
		return fmt.Errorf("speaker buzzer: %w", err)
	}
	speaker.Play(beep.StreamerFunc(b.stream))

	slog.Info("Speaker ready", slog.Int("sampleRate", DefaultSampleRate))

	return nil
}

func loadSample(path string, sr beep.SampleRate) (beep.Streamer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("speaker buzzer: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("speaker buzzer: %w", err)
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if buffer.Len() == 0 {
		return nil, fmt.Errorf("speaker buzzer: %s has no samples", path)
	}

	var looped beep.Streamer = beep.Loop(-1, buffer.Streamer(0, buffer.Len()))
	if format.SampleRate != sr {
		looped = beep.Resample(4, format.SampleRate, sr, looped)
	}

	return looped, nil
}

// Play implements Buzzer.
func (b *SpeakerBuzzer) Play() {
	b.on.Store(true)
}

// Stop implements Buzzer.
func (b *SpeakerBuzzer) Stop() {
	b.on.Store(false)
}

// Close silences the speaker.
func (b *SpeakerBuzzer) Close() {
	b.Stop()
	speaker.Clear()
}

// stream runs on the speaker goroutine and never ends.
func (b *SpeakerBuzzer) stream(samples [][2]float64) (int, bool) {
	if !b.on.Load() {
		clear(samples)
		return len(samples), true
	}

	if b.source != nil {
		n, _ := b.source.Stream(samples)
		clear(samples[n:])
		return len(samples), true
	}

	for i := range samples {
		v := b.tone.Level(b.phase, DefaultSampleRate)
		samples[i][0] = v
		samples[i][1] = v
		b.phase++
	}

	return len(samples), true
}
