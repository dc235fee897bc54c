package console

import "sync/atomic"

// Buzzer sounds while the sound timer of the machine runs.
// The console only calls Play and Stop when the state changes.
type Buzzer interface {
	// Boot initializes the component
	Boot() error
	Play()
	Stop()
}

type DummyBuzzer struct {
	isPlaying atomic.Bool
	plays     atomic.Int64
}

func NewDummyBuzzer() *DummyBuzzer {
	return &DummyBuzzer{}
}

// Boot implements Buzzer.
func (b *DummyBuzzer) Boot() error {
	return nil
}

// Play implements Buzzer.
func (b *DummyBuzzer) Play() {
	b.isPlaying.Store(true)
	b.plays.Add(1)
}

// Stop implements Buzzer
func (b *DummyBuzzer) Stop() {
	b.isPlaying.Store(false)
}

func (b *DummyBuzzer) IsPlaying() bool {
	return b.isPlaying.Load()
}

// Plays counts the calls to Play.
func (b *DummyBuzzer) Plays() int {
	return int(b.plays.Load())
}

// Tone is the square wave played while the buzzer is on.
type Tone struct {
	// Frequency in Hz
	Frequency int
	// Volume between 0 and 1
	Volume float64
}

var DefaultTone = Tone{
	Frequency: 440,
	Volume:    0.25,
}

// DefaultSampleRate is used by the buzzers that synthesize the tone.
const DefaultSampleRate = 44100

// Level returns the amplitude of the n-th sample of the wave, in [-Volume, Volume].
func (t Tone) Level(n, sampleRate int) float64 {
	if t.Frequency <= 0 {
		return 0
	}

	half := max(sampleRate/(2*t.Frequency), 1)
	if (n/half)%2 == 0 {
		return t.Volume
	}
	return -t.Volume
}
