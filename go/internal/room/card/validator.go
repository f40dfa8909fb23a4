package card

import (
	"fmt"
	"time"

	"github.com/mcdev12/bingohall/go/internal/models"
)

// Line identifies one of the twelve winning lines on a card.
type Line string

// LineRow / LineCol return identifiers for the given row or column index.
func LineRow(i int) Line { return Line(fmt.Sprintf("row-%d", i)) }
func LineCol(i int) Line { return Line(fmt.Sprintf("col-%d", i)) }

const (
	LineDiagMain Line = "diag-main" // top-left to bottom-right
	LineDiagAnti Line = "diag-anti" // top-right to bottom-left
)

// HasBingo evaluates the 5 rows, 5 columns and 2 diagonals of the card
// against the punched set. A line is complete when every non-free cell on
// it is punched; the free cell always counts as filled. It returns whether
// any line is complete together with the identifiers of every completed
// line.
//
// The result depends only on (card, punched) — no history, no ordering.
func HasBingo(c models.Card, punched map[int]bool) (bool, []Line) {
	filled := func(row, col int) bool {
		if row == models.CardSize/2 && col == models.CardSize/2 {
			return true
		}
		return punched[c.Cells[row][col]]
	}

	var complete []Line

	for row := 0; row < models.CardSize; row++ {
		full := true
		for col := 0; col < models.CardSize; col++ {
			if !filled(row, col) {
				full = false
				break
			}
		}
		if full {
			complete = append(complete, LineRow(row))
		}
	}

	for col := 0; col < models.CardSize; col++ {
		full := true
		for row := 0; row < models.CardSize; row++ {
			if !filled(row, col) {
				full = false
				break
			}
		}
		if full {
			complete = append(complete, LineCol(col))
		}
	}

	mainFull, antiFull := true, true
	for i := 0; i < models.CardSize; i++ {
		if !filled(i, i) {
			mainFull = false
		}
		if !filled(i, models.CardSize-1-i) {
			antiFull = false
		}
	}
	if mainFull {
		complete = append(complete, LineDiagMain)
	}
	if antiFull {
		complete = append(complete, LineDiagAnti)
	}

	return len(complete) > 0, complete
}

// RecomputeWin re-derives the player's win state after a punch, unpunch or
// draw. It first clamps the punched set to its intersection with the drawn
// numbers — punches of undrawn numbers are rejected upstream, this guards
// against races — then evaluates the card. The win flag and timestamp are
// set exactly once: later calls while the bingo still holds do not move
// WonAt.
//
// Returns the completed lines and whether this call was the one that set
// the win flag.
func RecomputeWin(p *models.Player, drawn map[int]bool, now time.Time) ([]Line, bool) {
	clamped := p.PunchedNumbers[:0]
	for _, n := range p.PunchedNumbers {
		if drawn[n] {
			clamped = append(clamped, n)
		}
	}
	p.PunchedNumbers = clamped

	won, lines := HasBingo(p.Card, p.PunchedSet())
	if won && !p.HasBingo {
		p.HasBingo = true
		t := now
		p.WonAt = &t
		return lines, true
	}
	return lines, false
}
