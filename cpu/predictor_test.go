package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredictor(t *testing.T) {
	assert := assert.New(t)

	bp := NewPredictor(8)
	assert.Equal(8, bp.Size())

	assert.False(bp.Predict(3))

	bp.Update(3, true)
	assert.True(bp.Predict(3))
	assert.True(bp.Predict(11), "aliases to slot 3")
	assert.False(bp.Predict(4))

	bp.Update(11, false)
	assert.False(bp.Predict(3))

	bp.Record(13)
	assert.Equal(uint32(13), bp.Target(5))

	bp.Update(1, true)
	bp.Reset()
	assert.False(bp.Predict(1))
	assert.Equal(uint32(0), bp.Target(5))
}

func TestPredictor_DefaultSize(t *testing.T) {
	assert := assert.New(t)

	bp := NewPredictor(0)
	assert.Equal(PREDICTOR_SIZE, bp.Size())
}

func TestCache_Slots(t *testing.T) {
	assert := assert.New(t)

	c := &Cache{}
	c.Write(0xff, 0x1234)
	assert.Equal(uint32(0x1234), c.Read(0xff))
	assert.Equal(uint32(0), c.Read(0))

	c.Reset()
	assert.Equal(uint32(0), c.Read(0xff))
}
