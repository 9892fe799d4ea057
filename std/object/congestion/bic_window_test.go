package congestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBICWindowClassicIncreaseBelowLowWindow(t *testing.T) {
	w := NewBICWindow(2, 0.5, false, true, false)
	assert.Equal(t, float64(2), w.Size())
	w.IncreaseWindow()
	assert.Equal(t, float64(3), w.Size())
}

func TestBICWindowDecreaseAppliesBeta(t *testing.T) {
	w := NewBICWindow(2, 0.5, false, true, false)
	for range 20 {
		w.IncreaseWindow()
	}
	before := w.Size()
	w.DecreaseWindow(false)
	after := w.Size()
	assert.Less(t, after, before)
	assert.GreaterOrEqual(t, after, w.initialWindow)
}

func TestBICWindowResetToInitial(t *testing.T) {
	w := NewBICWindow(2, 0.5, false, true, false)
	for range 30 {
		w.IncreaseWindow()
	}
	w.DecreaseWindow(true)
	assert.Equal(t, float64(2), w.Size())
}

// TestBICWindowConservativeGatesOnRecoveryPoint exercises the conservative
// decrease rule: a marked signal only decreases once highData has advanced
// past the recoveryPoint stamped by the previous decrease.
func TestBICWindowConservativeGatesOnRecoveryPoint(t *testing.T) {
	w := NewBICWindow(2, 0.5, true, true, false)
	for range 20 {
		w.IncreaseWindow()
	}
	sizeBeforeFirstMark := w.Size()

	// First marked signal: highData (1) > recoveryPoint (0), so it decreases.
	w.HandleSignal(CongestionSignal{Kind: SignalData, Seq: 1, CurrentSeq: 1, NackType: NackTypeMark})
	sizeAfterFirstMark := w.Size()
	assert.Less(t, sizeAfterFirstMark, sizeBeforeFirstMark)

	// Second marked signal with Seq still <= recoveryPoint: must not decrease again.
	w.HandleSignal(CongestionSignal{Kind: SignalData, Seq: 1, CurrentSeq: 1, NackType: NackTypeMark})
	assert.Equal(t, sizeAfterFirstMark, w.Size())
}

// TestBICWindowAQMMarkAlwaysDecreases checks that a CongMark (AQM-origin
// signal) decreases unconditionally even with conservative enabled, unlike
// a NACK-origin mark.
func TestBICWindowAQMMarkAlwaysDecreases(t *testing.T) {
	w := NewBICWindow(2, 0.5, true, true, false)
	for range 20 {
		w.IncreaseWindow()
	}

	w.HandleSignal(CongestionSignal{Kind: SignalData, Seq: 1, CurrentSeq: 1, CongMark: true})
	first := w.Size()
	w.HandleSignal(CongestionSignal{Kind: SignalData, Seq: 2, CurrentSeq: 2, CongMark: true})
	second := w.Size()
	assert.Less(t, second, first)
}

func TestBICWindowTimeoutBacksOffWithoutReactToMarks(t *testing.T) {
	w := NewBICWindow(2, 0.5, false, false, true)
	for range 20 {
		w.IncreaseWindow()
	}
	before := w.Size()
	w.HandleSignal(CongestionSignal{Kind: SignalTimeout, Seq: 1, CurrentSeq: 1})
	assert.Equal(t, w.initialWindow, w.Size())
	_ = before
}
