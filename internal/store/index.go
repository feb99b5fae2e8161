package store

import "sort"

// yearIndex is the in-memory secondary index on the Year column.
// It maps a year to the positions of all rows carrying that year, in
// insertion order. Maintained as a side effect of store mutations; rows are
// never removed, so entries are never deleted.
type yearIndex struct {
	data map[int][]int // year → row positions
}

func newYearIndex() *yearIndex {
	return &yearIndex{data: make(map[int][]int)}
}

// add records a row position under its year
func (idx *yearIndex) add(year int, pos int) {
	idx.data[year] = append(idx.data[year], pos)
}

// positions returns the row positions for an exact year.
// The returned slice is the index's own storage; callers must not mutate it.
func (idx *yearIndex) positions(year int) []int {
	return idx.data[year]
}

// years returns all distinct indexed years in ascending order
func (idx *yearIndex) years() []int {
	ys := make([]int, 0, len(idx.data))
	for y := range idx.data {
		ys = append(ys, y)
	}
	sort.Ints(ys)
	return ys
}

// rangeYears returns the indexed years within [from, to] in ascending order
func (idx *yearIndex) rangeYears(from, to int) []int {
	var ys []int
	for y := range idx.data {
		if y >= from && y <= to {
			ys = append(ys, y)
		}
	}
	sort.Ints(ys)
	return ys
}
