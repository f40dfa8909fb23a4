package models

// CardSize is the fixed grid dimension. Only 5x5 American cards are
// supported.
const CardSize = 5

// FreeCell is the value stored in the card's center cell. It carries no
// number and always counts as filled.
const FreeCell = 0

// Card is a 5x5 grid of numbers, indexed Cells[row][col]. Column c holds
// five distinct values from [15c+1, 15c+15]; the center cell (2,2) is the
// free cell. Cards are immutable once issued to a player.
type Card struct {
	Cells [CardSize][CardSize]int `json:"cells"`
}

// Contains reports whether n appears on the card. The free cell never
// matches.
func (c *Card) Contains(n int) bool {
	if n == FreeCell {
		return false
	}
	for row := 0; row < CardSize; row++ {
		for col := 0; col < CardSize; col++ {
			if c.Cells[row][col] == n {
				return true
			}
		}
	}
	return false
}

// Numbers returns every non-free value on the card.
func (c *Card) Numbers() []int {
	out := make([]int, 0, CardSize*CardSize-1)
	for row := 0; row < CardSize; row++ {
		for col := 0; col < CardSize; col++ {
			if row == CardSize/2 && col == CardSize/2 {
				continue
			}
			out = append(out, c.Cells[row][col])
		}
	}
	return out
}
