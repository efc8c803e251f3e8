package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/natalplan/auth-service/internal/config"
)

var testRule = config.LimiterRule{
	Name:   "test",
	Points: 3,
	Window: time.Minute,
	Block:  5 * time.Minute,
}

func TestCounterStateBudget(t *testing.T) {
	st := &counterState{}
	now := int64(1_000_000)

	for i, wantRemaining := range []int64{2, 1, 0} {
		res := st.step(now+int64(i), testRule)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, wantRemaining, res.Remaining, "request %d", i+1)
	}

	// Fourth request exhausts the budget and starts the block.
	res := st.step(now+10, testRule)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)
	assert.Equal(t, testRule.Block.Milliseconds(), res.ResetMs)
}

func TestCounterStateBlockHolds(t *testing.T) {
	st := &counterState{}
	now := int64(1_000_000)
	for i := 0; i < 4; i++ {
		st.step(now, testRule)
	}

	// Still blocked halfway through, even though the window has lapsed.
	later := now + testRule.Window.Milliseconds() + 1
	res := st.step(later, testRule)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.ResetMs)
}

func TestCounterStateRecoversAfterBlock(t *testing.T) {
	st := &counterState{}
	now := int64(1_000_000)
	for i := 0; i < 4; i++ {
		st.step(now, testRule)
	}

	after := now + testRule.Block.Milliseconds() + 1
	res := st.step(after, testRule)
	assert.True(t, res.Allowed, "budget resets once the block lapses")
	assert.Equal(t, int64(testRule.Points-1), res.Remaining)
}

func TestCounterStateWindowReset(t *testing.T) {
	st := &counterState{}
	now := int64(1_000_000)
	st.step(now, testRule)
	st.step(now, testRule)

	next := now + testRule.Window.Milliseconds()
	res := st.step(next, testRule)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(testRule.Points-1), res.Remaining, "fresh window starts a fresh budget")
}
