package card

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/bingohall/go/internal/models"
)

// fixedCard lays out a predictable grid: column c holds 15c+1..15c+5 top to
// bottom, with the free center.
func fixedCard() models.Card {
	var c models.Card
	for col := 0; col < models.CardSize; col++ {
		for row := 0; row < models.CardSize; row++ {
			c.Cells[row][col] = col*15 + row + 1
		}
	}
	c.Cells[2][2] = models.FreeCell
	return c
}

func punchSet(ns ...int) map[int]bool {
	set := make(map[int]bool, len(ns))
	for _, n := range ns {
		set[n] = true
	}
	return set
}

func TestHasBingoEmptyPunched(t *testing.T) {
	won, lines := HasBingo(fixedCard(), nil)
	assert.False(t, won)
	assert.Empty(t, lines)
}

func TestHasBingoRow(t *testing.T) {
	c := fixedCard()
	// row 0: 1, 16, 31, 46, 61
	won, lines := HasBingo(c, punchSet(1, 16, 31, 46, 61))
	assert.True(t, won)
	assert.Equal(t, []Line{LineRow(0)}, lines)
}

func TestHasBingoRowThroughFreeCell(t *testing.T) {
	c := fixedCard()
	// row 2 passes through the free center: 3, 18, _, 48, 63
	won, lines := HasBingo(c, punchSet(3, 18, 48, 63))
	assert.True(t, won)
	assert.Equal(t, []Line{LineRow(2)}, lines)
}

func TestHasBingoColumn(t *testing.T) {
	c := fixedCard()
	// column 1: 16..20
	won, lines := HasBingo(c, punchSet(16, 17, 18, 19, 20))
	assert.True(t, won)
	assert.Equal(t, []Line{LineCol(1)}, lines)
}

func TestHasBingoDiagonals(t *testing.T) {
	c := fixedCard()
	// main diagonal: (0,0)=1 (1,1)=17 (2,2)=free (3,3)=49 (4,4)=65
	won, lines := HasBingo(c, punchSet(1, 17, 49, 65))
	require.True(t, won)
	assert.Equal(t, []Line{LineDiagMain}, lines)

	// anti diagonal: (0,4)=61 (1,3)=47 (2,2)=free (3,1)=19 (4,0)=5
	won, lines = HasBingo(c, punchSet(61, 47, 19, 5))
	require.True(t, won)
	assert.Equal(t, []Line{LineDiagAnti}, lines)
}

func TestHasBingoFourOfFiveIsNotBingo(t *testing.T) {
	c := fixedCard()
	won, lines := HasBingo(c, punchSet(1, 16, 31, 46)) // row 0 minus one
	assert.False(t, won)
	assert.Empty(t, lines)
}

func TestHasBingoMultipleLines(t *testing.T) {
	c := fixedCard()
	// row 0 and column 0 together
	won, lines := HasBingo(c, punchSet(1, 16, 31, 46, 61, 2, 3, 4, 5))
	require.True(t, won)
	assert.ElementsMatch(t, []Line{LineRow(0), LineCol(0)}, lines)
}

func TestHasBingoIsPure(t *testing.T) {
	c := fixedCard()
	punched := punchSet(1, 16, 31, 46, 61)

	won1, _ := HasBingo(c, punched)
	won2, _ := HasBingo(c, punched)
	assert.Equal(t, won1, won2)
	assert.Equal(t, fixedCard(), c, "card must not be mutated")
	assert.Equal(t, punchSet(1, 16, 31, 46, 61), punched, "punched set must not be mutated")
}

func TestRecomputeWinSetsFlagOnce(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &models.Player{
		Card:           fixedCard(),
		PunchedNumbers: []int{1, 16, 31, 46, 61},
	}
	drawn := punchSet(1, 16, 31, 46, 61)

	lines, newlyWon := RecomputeWin(p, drawn, now)
	require.True(t, newlyWon)
	assert.Equal(t, []Line{LineRow(0)}, lines)
	require.NotNil(t, p.WonAt)
	assert.Equal(t, now, *p.WonAt)
	assert.True(t, p.HasBingo)

	later := now.Add(time.Minute)
	_, newlyWon = RecomputeWin(p, drawn, later)
	assert.False(t, newlyWon, "win is detected exactly once")
	assert.Equal(t, now, *p.WonAt, "WonAt never moves")
}

func TestRecomputeWinClampsToDrawn(t *testing.T) {
	p := &models.Player{
		Card:           fixedCard(),
		PunchedNumbers: []int{1, 16, 31, 46, 61},
	}
	// 61 was never drawn; the clamp drops it and the row is incomplete
	drawn := punchSet(1, 16, 31, 46)

	_, newlyWon := RecomputeWin(p, drawn, time.Now())
	assert.False(t, newlyWon)
	assert.Equal(t, []int{1, 16, 31, 46}, p.PunchedNumbers)
	assert.False(t, p.HasBingo)
}
