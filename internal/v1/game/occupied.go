package game

import "github.com/mazehunt/server/internal/v1/grid"

// OccupiedSet is a transient view of the cells currently taken by world
// items. Spawn placement builds one, consults it, and throws it away.
type OccupiedSet map[grid.Cell]struct{}

// NewOccupiedSet builds a set from any number of cell slices.
func NewOccupiedSet(groups ...[]grid.Cell) OccupiedSet {
	o := make(OccupiedSet)
	for _, cells := range groups {
		for _, c := range cells {
			o[c] = struct{}{}
		}
	}
	return o
}

// Has reports whether the cell is taken.
func (o OccupiedSet) Has(c grid.Cell) bool {
	_, ok := o[c]
	return ok
}

// Add marks the cell as taken.
func (o OccupiedSet) Add(c grid.Cell) {
	o[c] = struct{}{}
}
