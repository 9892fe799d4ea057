package consumer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRttEstimatorFloorsAtMinRtoBeforeAnySample(t *testing.T) {
	r := NewRttEstimator(100*time.Millisecond, 16)
	assert.Equal(t, 100*time.Millisecond, r.RetransmitTimeout())
}

func TestRttEstimatorBackoffDoublesUpToMax(t *testing.T) {
	r := NewRttEstimator(100*time.Millisecond, 4)

	r.BackoffRto()
	assert.Equal(t, 200*time.Millisecond, r.RetransmitTimeout())

	r.BackoffRto()
	assert.Equal(t, 400*time.Millisecond, r.RetransmitTimeout())

	// multiplier*2 (8) would exceed maxMultiplier (4): stays capped.
	r.BackoffRto()
	assert.Equal(t, 400*time.Millisecond, r.RetransmitTimeout())
}

func TestRttEstimatorAddMeasurementResetsMultiplier(t *testing.T) {
	r := NewRttEstimator(10*time.Millisecond, 16)
	r.BackoffRto()
	r.BackoffRto()
	assert.Equal(t, 40*time.Millisecond, r.RetransmitTimeout())

	r.AddMeasurement(20 * time.Millisecond)
	// First sample seeds srtt=sample, rttvar=sample/2; rto = srtt + 4*rttvar = 3*sample.
	assert.Equal(t, 60*time.Millisecond, r.RetransmitTimeout())
}

func TestRttEstimatorRetransmitTimeoutNeverBelowMinRto(t *testing.T) {
	r := NewRttEstimator(50*time.Millisecond, 16)
	r.AddMeasurement(1 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, r.RetransmitTimeout())
}
