package satellite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByNoradID(t *testing.T) {
	sat := ByNoradID(25544)
	assert.NotNil(t, sat)
	assert.Equal(t, "ISS", sat.Name)

	assert.Nil(t, ByNoradID(99999))
}

func TestByNameCaseInsensitive(t *testing.T) {
	sat := ByName("meteor-m2")
	assert.NotNil(t, sat)
	assert.Equal(t, 40069, sat.NoradID)
}

func TestManualNaming(t *testing.T) {
	sat := Manual(145800000)
	assert.Equal(t, "Manual 145.800 MHz", sat.Name)
	assert.Equal(t, KindSSTV, sat.Kind)
	assert.Equal(t, DemodFM, sat.Demod)
}
