package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockTickerFiresOnAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clk := NewMockClock(start)
	ticker := clk.NewTicker(time.Minute)

	clk.Advance(30 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("ticked before the period elapsed")
	default:
	}

	clk.Advance(30 * time.Second)
	select {
	case tick := <-ticker.C():
		assert.Equal(t, start.Add(time.Minute), tick)
	default:
		t.Fatal("no tick after a full period")
	}
}

func TestMockTickerDropsMissedTicks(t *testing.T) {
	clk := NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	ticker := clk.NewTicker(time.Second)

	clk.Advance(10 * time.Second)

	assert.Len(t, ticker.C(), 1)
}

func TestMockTickerStop(t *testing.T) {
	clk := NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	ticker := clk.NewTicker(time.Second)
	assert.Equal(t, 1, clk.Tickers())

	ticker.Stop()
	clk.Advance(time.Hour)

	assert.Zero(t, clk.Tickers())
	assert.Len(t, ticker.C(), 0)
}
