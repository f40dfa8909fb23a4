// Package card generates bingo cards and evaluates them for completed
// lines. Generation and evaluation are pure with respect to room state so
// they can be re-run at any point from a card and a punched set alone.
package card

import (
	"math/rand"

	"github.com/mcdev12/bingohall/go/internal/models"
)

// columnSpan is the size of each column's number range. Column c draws from
// [c*columnSpan+1, (c+1)*columnSpan].
const columnSpan = 15

// Generator produces cards from a seeded random source. One generator is
// owned by one room actor, so no locking is needed here.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a card generator from the given seed. The same seed
// yields the same sequence of cards, which keeps tests reproducible.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate builds a structurally valid card: each column holds five
// distinct numbers from its 15-number range, except the center column which
// holds four numbers around the free cell.
//
// The column is filled by shuffling its full range and taking the first
// five entries, which guarantees no duplicates without rejection sampling.
func (g *Generator) Generate() models.Card {
	var c models.Card
	for col := 0; col < models.CardSize; col++ {
		pool := make([]int, columnSpan)
		for i := range pool {
			pool[i] = col*columnSpan + i + 1
		}
		g.rng.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})
		for row := 0; row < models.CardSize; row++ {
			c.Cells[row][col] = pool[row]
		}
	}
	c.Cells[models.CardSize/2][models.CardSize/2] = models.FreeCell
	return c
}
