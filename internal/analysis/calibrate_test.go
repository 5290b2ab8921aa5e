// SPDX-License-Identifier: MIT
package analysis

import "testing"

func TestCalibratorCollection(t *testing.T) {
	calibrator := NewAmbientCalibrator(5)

	for i := 0; i < 4; i++ {
		if done := calibrator.Add(-70); done {
			t.Fatalf("calibrator done after %d of 5 windows", i+1)
		}
	}
	if calibrator.Done() {
		t.Fatal("calibrator done before the final window")
	}
	if done := calibrator.Add(-70); !done {
		t.Fatal("calibrator not done after the final window")
	}

	// Additional levels after completion are ignored.
	before := calibrator.Threshold()
	calibrator.Add(-10)
	if got := calibrator.Threshold(); got != before {
		t.Errorf("threshold changed after completion: got %v, want %v", got, before)
	}
}

func TestCalibratorThreshold(t *testing.T) {
	levels := []float64{-70, -68, -72, -69, -71, -90, -60, -65, -75, -80}

	calibrator := NewAmbientCalibrator(len(levels))
	for _, level := range levels {
		calibrator.Add(level)
	}

	// Sorted levels put -75 at the 25th percentile; the margin lifts the
	// suggestion to -65.
	if got := calibrator.Threshold(); got != -65 {
		t.Errorf("threshold: got %v, want -65", got)
	}
}

func TestCalibratorThresholdClamping(t *testing.T) {
	tests := []struct {
		desc  string
		level float64
		want  float64
	}{
		{"Loud ambient clamps to zero", -5, 0},
		{"Near-silent ambient clamps to the floor", -135, SilenceFloorDecibels},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			calibrator := NewAmbientCalibrator(4)
			for i := 0; i < 4; i++ {
				calibrator.Add(tt.level)
			}
			if got := calibrator.Threshold(); got != tt.want {
				t.Errorf("threshold: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalibratorDefaults(t *testing.T) {
	calibrator := NewAmbientCalibrator(0)
	for i := 0; i < DefaultCalibrationWindows-1; i++ {
		calibrator.Add(-70)
	}
	if calibrator.Done() {
		t.Fatal("calibrator done before the default window count")
	}
	calibrator.Add(-70)
	if !calibrator.Done() {
		t.Fatal("calibrator not done at the default window count")
	}

	if got := NewAmbientCalibrator(8).Threshold(); got != DefaultMinVolumeDecibels {
		t.Errorf("threshold with no observations: got %v, want %v", got, DefaultMinVolumeDecibels)
	}
}
