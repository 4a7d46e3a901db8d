package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fingerprintBars() []Bar {
	t0 := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	bars := make([]Bar, 4)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = Bar{TS: t0.Add(time.Duration(i) * time.Minute), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10}
	}
	return bars
}

func TestFingerprint(t *testing.T) {
	base := NewSeries("X", "1m", fingerprintBars())
	assert.Equal(t, base.Fingerprint(), NewSeries("X", "1m", fingerprintBars()).Fingerprint())
	assert.Equal(t, "X:1m:empty", NewSeries("X", "1m", nil).Fingerprint())

	revised := fingerprintBars()
	revised[3].Close += 0.01
	assert.NotEqual(t, base.Fingerprint(), NewSeries("X", "1m", revised).Fingerprint())

	revised = fingerprintBars()
	revised[1].Volume = 11
	assert.NotEqual(t, base.Fingerprint(), NewSeries("X", "1m", revised).Fingerprint())

	noVolume := NewSeries("X", "1m", fingerprintBars())
	noVolume.HasVolume = false
	assert.NotEqual(t, base.Fingerprint(), noVolume.Fingerprint())

	assert.NotEqual(t, base.Fingerprint(), NewSeries("Y", "1m", fingerprintBars()).Fingerprint())
}
