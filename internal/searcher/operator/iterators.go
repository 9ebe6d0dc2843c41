package operator

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
)

// Iterator walks a materialized inverted list with a document cursor and,
// within the current document, a position cursor.
type Iterator struct {
	list *index.InvList
	cur  int
	loc  int
}

func newIterator(list *index.InvList) *Iterator {
	return &Iterator{list: list}
}

// NewTermIterator iterates a term's postings as returned by the index.
func NewTermIterator(list *index.InvList) *Iterator {
	return newIterator(list)
}

func (it *Iterator) Field() string {
	return it.list.Field
}

func (it *Iterator) Df() int {
	return it.list.Df()
}

func (it *Iterator) Ctf() int64 {
	return it.list.Ctf()
}

// List is the materialized inverted list.
func (it *Iterator) List() *index.InvList {
	return it.list
}

func (it *Iterator) HasMatch() bool {
	return it.cur < len(it.list.Postings)
}

func (it *Iterator) Match() int {
	if !it.HasMatch() {
		return index.Invalid
	}
	return it.list.Postings[it.cur].DocID
}

// Posting is the current document's posting. Only valid while HasMatch.
func (it *Iterator) Posting() index.Posting {
	return it.list.Postings[it.cur]
}

func (it *Iterator) AdvancePast(docID int) {
	start := it.cur
	for it.cur < len(it.list.Postings) && it.list.Postings[it.cur].DocID <= docID {
		it.cur++
	}
	if it.cur != start {
		it.loc = 0
	}
}

func (it *Iterator) AdvanceTo(docID int) {
	start := it.cur
	for it.cur < len(it.list.Postings) && it.list.Postings[it.cur].DocID < docID {
		it.cur++
	}
	if it.cur != start {
		it.loc = 0
	}
}

func (it *Iterator) LocHasMatch() bool {
	return it.HasMatch() && it.loc < len(it.list.Postings[it.cur].Positions)
}

func (it *Iterator) LocMatch() int {
	return it.list.Postings[it.cur].Positions[it.loc]
}

func (it *Iterator) LocAdvance() {
	it.loc++
}

// LocAdvancePast moves the position cursor to the first position > pos.
func (it *Iterator) LocAdvancePast(pos int) {
	for it.LocHasMatch() && it.LocMatch() <= pos {
		it.loc++
	}
}

// syncArgs moves every argument to the largest current document among them.
// It reports false once any argument is exhausted, and otherwise whether all
// arguments landed on that document.
func syncArgs(args []*Iterator) (doc int, aligned, ok bool) {
	doc = index.Invalid
	for _, a := range args {
		if !a.HasMatch() {
			return index.Invalid, false, false
		}
		if d := a.Match(); d > doc {
			doc = d
		}
	}
	aligned = true
	for _, a := range args {
		a.AdvanceTo(doc)
		if !a.HasMatch() {
			return index.Invalid, false, false
		}
		if a.Match() != doc {
			aligned = false
		}
	}
	return doc, aligned, true
}

// proximity materializes the list of documents where every argument matches
// and positions finds at least one window.
func proximity(field string, args []*Iterator, positions func([]*Iterator) []int) (*Iterator, error) {
	list := index.NewInvList(field)
	if len(args) == 0 {
		return newIterator(list), nil
	}
	for {
		doc, aligned, ok := syncArgs(args)
		if !ok {
			break
		}
		if !aligned {
			continue
		}
		if pos := positions(args); len(pos) > 0 {
			if err := list.Append(doc, pos); err != nil {
				return nil, err
			}
		}
		for _, a := range args {
			a.AdvancePast(doc)
		}
	}
	return newIterator(list), nil
}

// NewNearIterator matches the arguments in order with at most distance
// positions between consecutive arguments. Each window is recorded at the
// position of its last argument.
func NewNearIterator(field string, distance int, args []*Iterator) (*Iterator, error) {
	return proximity(field, args, func(args []*Iterator) []int {
		return nearPositions(args, distance)
	})
}

func nearPositions(args []*Iterator, distance int) []int {
	var positions []int
	last := args[len(args)-1]
	for {
		for i := 1; i < len(args); i++ {
			if !args[i-1].LocHasMatch() {
				return positions
			}
			args[i].LocAdvancePast(args[i-1].LocMatch())
		}
		if !last.LocHasMatch() {
			return positions
		}

		valid := true
		for i := 1; i < len(args); i++ {
			if args[i].LocMatch()-args[i-1].LocMatch() > distance {
				valid = false
				break
			}
		}
		if valid {
			positions = append(positions, last.LocMatch())
			for _, a := range args {
				a.LocAdvance()
			}
			continue
		}

		second := math.MaxInt
		if args[1].LocHasMatch() {
			second = args[1].LocMatch()
		}
		for {
			args[0].LocAdvance()
			if !args[0].LocHasMatch() {
				return positions
			}
			if second-args[0].LocMatch() <= distance {
				break
			}
		}
	}
}

// NewWindowIterator matches the arguments in any order within a span of
// fewer than size positions. Each window is recorded at its largest
// position.
func NewWindowIterator(field string, size int, args []*Iterator) (*Iterator, error) {
	return proximity(field, args, func(args []*Iterator) []int {
		return windowPositions(args, size)
	})
}

func windowPositions(args []*Iterator, size int) []int {
	var positions []int
	for {
		minIdx, lo, hi := 0, math.MaxInt, math.MinInt
		for i, a := range args {
			if !a.LocHasMatch() {
				return positions
			}
			p := a.LocMatch()
			if p < lo {
				minIdx, lo = i, p
			}
			if p > hi {
				hi = p
			}
		}
		if hi-lo < size {
			positions = append(positions, hi)
			for _, a := range args {
				a.LocAdvance()
			}
		} else {
			args[minIdx].LocAdvance()
		}
	}
}

// NewSynIterator treats its arguments as one term: each document any
// argument matches gets the union of their positions.
func NewSynIterator(field string, args []*Iterator) (*Iterator, error) {
	list := index.NewInvList(field)
	for {
		doc := index.Invalid
		for _, a := range args {
			if a.HasMatch() && (doc == index.Invalid || a.Match() < doc) {
				doc = a.Match()
			}
		}
		if doc == index.Invalid {
			break
		}

		var positions []int
		for _, a := range args {
			if a.HasMatch() && a.Match() == doc {
				positions = append(positions, a.Posting().Positions...)
			}
		}
		sort.Ints(positions)
		positions = dedupe(positions)
		if err := list.Append(doc, positions); err != nil {
			return nil, err
		}
		for _, a := range args {
			a.AdvancePast(doc)
		}
	}
	return newIterator(list), nil
}

func dedupe(sorted []int) []int {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, p := range sorted[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}
