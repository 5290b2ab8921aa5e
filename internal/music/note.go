// SPDX-License-Identifier: MIT

// Package music converts between frequencies and notes of the twelve-tone
// equal-tempered scale.
package music

import (
	"errors"
	"fmt"
	"math"
)

const (
	// ConcertPitch is the A4 reference frequency in Hz.
	ConcertPitch = 440.0

	// MinMIDI and MaxMIDI bound the representable note range, C-1 through
	// G9.
	MinMIDI = 0
	MaxMIDI = 127

	a4MIDI             = 69
	semitonesPerOctave = 12
)

// ErrOutOfRange reports a frequency with no nearest note inside the MIDI
// range.
var ErrOutOfRange = errors.New("music: frequency out of note range")

var noteNames = [semitonesPerOctave]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// Note is one tempered-scale pitch plus the deviation of the frequency it
// was derived from.
type Note struct {
	Name      string
	Octave    int
	MIDI      int
	Frequency float64 // ideal frequency of the note, Hz
	Cents     float64 // deviation of the input from ideal, in [-50, 50]
}

// String renders the note in scientific pitch notation, e.g. "A4".
func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// FromFrequency maps a frequency to the nearest tempered note. Returns
// ErrOutOfRange when the frequency is not positive or its nearest note
// falls outside [MinMIDI, MaxMIDI].
func FromFrequency(frequency float64) (Note, error) {
	if frequency <= 0 {
		return Note{}, fmt.Errorf("%w: %v Hz", ErrOutOfRange, frequency)
	}

	exact := a4MIDI + semitonesPerOctave*math.Log2(frequency/ConcertPitch)
	midi := int(math.Round(exact))
	if midi < MinMIDI || midi > MaxMIDI {
		return Note{}, fmt.Errorf("%w: %v Hz", ErrOutOfRange, frequency)
	}

	return Note{
		Name:      noteNames[midi%semitonesPerOctave],
		Octave:    midi/semitonesPerOctave - 1,
		MIDI:      midi,
		Frequency: MIDIFrequency(midi),
		Cents:     (exact - float64(midi)) * 100,
	}, nil
}

// MIDIFrequency returns the ideal frequency of a MIDI note number.
func MIDIFrequency(midi int) float64 {
	return ConcertPitch * math.Pow(2, float64(midi-a4MIDI)/semitonesPerOctave)
}
