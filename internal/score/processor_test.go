package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posture-coach/engine/internal/config"
	"github.com/posture-coach/engine/internal/models"
)

func TestProcessor_NoDeviationStaysGreen(t *testing.T) {
	p := New(config.NewStore())
	res := p.Process(Sample{})
	require.False(t, res.Frozen)
	assert.Equal(t, models.ZoneGreen, res.Zone)
	assert.InDelta(t, 100, res.Score, 0.01)
}

func TestProcessor_LargeDeviationGoesRed(t *testing.T) {
	p := New(config.NewStore())
	var res Result
	for i := 0; i < 10; i++ {
		res = p.Process(Sample{DPitch: 20})
	}
	assert.Equal(t, models.ZoneRed, res.Zone)
}

func TestProcessor_FreezesOnUnreliable(t *testing.T) {
	p := New(config.NewStore())
	p.Process(Sample{})
	res := p.Process(Sample{Unreliable: true, DPitch: 50})
	assert.True(t, res.Frozen)
	assert.Equal(t, "unreliable", res.Reason)
	assert.InDelta(t, 100, res.Score, 0.01) // held at previous
}

func TestProcessor_FreezeBeforeFirstSampleUsesNeutral(t *testing.T) {
	p := New(config.NewStore())
	res := p.Process(Sample{BaselinePending: true})
	assert.True(t, res.Frozen)
	assert.Equal(t, float32(35), res.Score)
}

func TestProcessor_ZoneBoundaryAt70CountsYellow(t *testing.T) {
	assert.Equal(t, models.ZoneYellow, zoneFor(70))
	assert.Equal(t, models.ZoneYellow, zoneFor(60))
	assert.Equal(t, models.ZoneRed, zoneFor(59.999))
	assert.Equal(t, models.ZoneGreen, zoneFor(80))
}
