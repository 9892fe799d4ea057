package table

import (
	"testing"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardingInfoSetAndGetForwPerc(t *testing.T) {
	info := NewForwardingInfo(nil)
	info.SetForwPerc(1, 0.75)
	assert.Equal(t, 0.75, info.ForwPerc(1))
	assert.Equal(t, 0.0, info.ForwPerc(2))
	assert.Equal(t, 1, info.FaceCount())
}

func TestForwardingInfoReduceForwPercRedistributesToOthers(t *testing.T) {
	info := NewForwardingInfo(nil)
	info.SetForwPerc(1, 0.5)
	info.SetForwPerc(2, 0.3)
	info.SetForwPerc(3, 0.2)

	info.ReduceForwPerc(1, 0.1)

	assert.InDelta(t, 0.4, info.ForwPerc(1), 1e-9)
	// The 0.1 taken from face 1 is split evenly across faces 2 and 3.
	assert.InDelta(t, 0.35, info.ForwPerc(2), 1e-9)
	assert.InDelta(t, 0.25, info.ForwPerc(3), 1e-9)
}

func TestForwardingInfoReduceForwPercClampsAtZero(t *testing.T) {
	info := NewForwardingInfo(nil)
	info.SetForwPerc(1, 0.1)
	info.SetForwPerc(2, 0.9)

	info.ReduceForwPerc(1, 0.5)

	assert.Equal(t, 0.0, info.ForwPerc(1))
	assert.InDelta(t, 1.0, info.ForwPerc(2), 1e-9)
}

func TestForwardingInfoReduceForwPercNoopWithOneFace(t *testing.T) {
	info := NewForwardingInfo(nil)
	info.SetForwPerc(1, 1.0)
	info.ReduceForwPerc(1, 0.5)
	assert.Equal(t, 1.0, info.ForwPerc(1))
}

func TestForwardingInfoDisabledAfterSustainedZeroWeight(t *testing.T) {
	info := NewForwardingInfo(nil)
	info.SetForwPerc(1, 0.0)
	info.SetForwPerc(2, 1.0)

	info.ReduceForwPerc(1, 0.0)
	assert.False(t, info.IsDisabled(1), "must not be disabled before sitting at zero past TimeBetweenFwUpdate")

	time.Sleep(TimeBetweenFwUpdate + 10*time.Millisecond)
	info.ReduceForwPerc(1, 0.0)
	assert.True(t, info.IsDisabled(1))
}

func TestMeasurementsTableGetOrCreateIsIdempotent(t *testing.T) {
	m := NewMeasurementsTable()
	name, _ := enc.NameFromStr("/a/b/c")

	first := m.GetOrCreate(name)
	first.SetForwPerc(1, 0.5)

	second := m.GetOrCreate(name)
	assert.Same(t, first, second)
	assert.Equal(t, 0.5, second.ForwPerc(1))
}

func TestMeasurementsTableFindLongestPrefixMatch(t *testing.T) {
	m := NewMeasurementsTable()

	shallow, _ := enc.NameFromStr("/a")
	deep, _ := enc.NameFromStr("/a/b/c")
	query, _ := enc.NameFromStr("/a/b/c/d/e")

	shallowInfo := m.GetOrCreate(shallow)
	deepInfo := m.GetOrCreate(deep)

	matchedName, matchedInfo := m.FindLongestPrefixMatch(query)
	require.NotNil(t, matchedInfo)
	assert.Same(t, deepInfo, matchedInfo)
	assert.True(t, deep.Equal(matchedName))
	_ = shallowInfo
}

func TestMeasurementsTableFindLongestPrefixMatchNoEntry(t *testing.T) {
	m := NewMeasurementsTable()
	query, _ := enc.NameFromStr("/nowhere")
	name, info := m.FindLongestPrefixMatch(query)
	assert.Nil(t, name)
	assert.Nil(t, info)
}

func TestMeasurementsTableErase(t *testing.T) {
	m := NewMeasurementsTable()
	name, _ := enc.NameFromStr("/erase/me")
	m.GetOrCreate(name)
	m.Erase(name)

	matchedName, matchedInfo := m.FindLongestPrefixMatch(name)
	assert.Nil(t, matchedInfo)
	assert.Nil(t, matchedName)
}
