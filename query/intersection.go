package query

import (
	"iter"
	"math"
	"strconv"
	"strings"
)

// IndexTuple holds one 1-based row index per table of a select, in FROM/JOIN
// order. 0 marks a table that an outer join extended with NULLs.
type IndexTuple []int

// tupleArena hands out tuples carved from large shared chunks.
// Tuples are never reused, so retained tuples stay valid.
type tupleArena struct {
	width int
	chunk []int
}

const arenaTuples = 512

func (a *tupleArena) next() IndexTuple {
	if len(a.chunk) < a.width {
		a.chunk = make([]int, a.width*arenaTuples)
	}
	t := a.chunk[:a.width:a.width]
	a.chunk = a.chunk[a.width:]
	return IndexTuple(t)
}

func (a *tupleArena) extend(base IndexTuple, slot, row int) IndexTuple {
	t := a.next()
	copy(t, base)
	t[slot] = row
	return t
}

func tupleKey(t IndexTuple) string {
	var b strings.Builder
	for i, v := range t {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// intersections streams the candidate tuples of the select's tables and
// joins, with ON conditions applied. It also returns the number of
// candidates a full cross product would produce, which only decides
// whether evaluation is worth parallelizing.
func (sx *selectExecution) intersections() (iter.Seq2[IndexTuple, error], int64) {
	arena := &tupleArena{width: len(sx.tables)}
	estimate := int64(1)
	for _, b := range sx.tables {
		n := int64(b.rel.Len())
		if n != 0 && estimate > math.MaxInt64/n {
			estimate = math.MaxInt64
		} else {
			estimate *= n
		}
	}

	first := sx.tables[0].rel.Len()
	var seq iter.Seq2[IndexTuple, error] = func(yield func(IndexTuple, error) bool) {
		for row := 1; row <= first; row++ {
			t := arena.next()
			t[0] = row
			if !yield(t, nil) {
				return
			}
		}
	}

	for i, j := range sx.sel.Joins {
		slot := i + 1
		stage := joinStage{sx: sx, arena: arena, slot: slot, rows: sx.tables[slot].rel.Len(), on: j.On}
		switch j.Type {
		case JoinLeft:
			seq = stage.left(seq)
		case JoinRight:
			seq = stage.right(seq)
		case JoinFull:
			seq = stage.full(seq)
		default:
			seq = stage.inner(seq)
		}
	}
	return seq, estimate
}

// joinStage adds one table slot to every incoming tuple
type joinStage struct {
	sx    *selectExecution
	arena *tupleArena
	slot  int
	rows  int
	on    Expr
}

func (j joinStage) match(t IndexTuple) (bool, error) {
	if j.on == nil {
		return true, nil
	}
	return j.sx.rowEvaluator(t).truth(j.on)
}

// inner yields every combination satisfying ON (all combinations for CROSS)
func (j joinStage) inner(prev iter.Seq2[IndexTuple, error]) iter.Seq2[IndexTuple, error] {
	return func(yield func(IndexTuple, error) bool) {
		for left, err := range prev {
			if err != nil {
				yield(nil, err)
				return
			}
			for row := 1; row <= j.rows; row++ {
				t := j.arena.extend(left, j.slot, row)
				ok, err := j.match(t)
				if err != nil {
					yield(nil, err)
					return
				}
				if ok && !yield(t, nil) {
					return
				}
			}
		}
	}
}

// left yields matches, or the left tuple with a NULL right side
func (j joinStage) left(prev iter.Seq2[IndexTuple, error]) iter.Seq2[IndexTuple, error] {
	return func(yield func(IndexTuple, error) bool) {
		for left, err := range prev {
			if err != nil {
				yield(nil, err)
				return
			}
			if !j.leftMatches(left, yield) {
				return
			}
		}
	}
}

// leftMatches yields the LEFT JOIN output for one left tuple; false means stop
func (j joinStage) leftMatches(left IndexTuple, yield func(IndexTuple, error) bool) bool {
	matched := false
	for row := 1; row <= j.rows; row++ {
		t := j.arena.extend(left, j.slot, row)
		ok, err := j.match(t)
		if err != nil {
			yield(nil, err)
			return false
		}
		if ok {
			matched = true
			if !yield(t, nil) {
				return false
			}
		}
	}
	if !matched {
		return yield(j.arena.extend(left, j.slot, 0), nil)
	}
	return true
}

// collect drains the incoming tuples; RIGHT and FULL need them all up front
func collect(prev iter.Seq2[IndexTuple, error]) ([]IndexTuple, error) {
	var all []IndexTuple
	for t, err := range prev {
		if err != nil {
			return nil, err
		}
		all = append(all, t)
	}
	return all, nil
}

// rightMatches yields the RIGHT JOIN output for one right row; false means stop
func (j joinStage) rightMatches(lefts []IndexTuple, row int, yield func(IndexTuple, error) bool) bool {
	matched := false
	for _, left := range lefts {
		t := j.arena.extend(left, j.slot, row)
		ok, err := j.match(t)
		if err != nil {
			yield(nil, err)
			return false
		}
		if ok {
			matched = true
			if !yield(t, nil) {
				return false
			}
		}
	}
	if !matched {
		t := j.arena.next()
		clear(t)
		t[j.slot] = row
		return yield(t, nil)
	}
	return true
}

// right yields, for each right row, its matches or an all-NULL left side
func (j joinStage) right(prev iter.Seq2[IndexTuple, error]) iter.Seq2[IndexTuple, error] {
	return func(yield func(IndexTuple, error) bool) {
		lefts, err := collect(prev)
		if err != nil {
			yield(nil, err)
			return
		}
		for row := 1; row <= j.rows; row++ {
			if !j.rightMatches(lefts, row, yield) {
				return
			}
		}
	}
}

// full yields the LEFT JOIN output followed by the RIGHT JOIN output over
// the same incoming tuples, skipping tuples already produced
func (j joinStage) full(prev iter.Seq2[IndexTuple, error]) iter.Seq2[IndexTuple, error] {
	return func(yield func(IndexTuple, error) bool) {
		lefts, err := collect(prev)
		if err != nil {
			yield(nil, err)
			return
		}
		seen := make(map[string]struct{})
		dedup := func(t IndexTuple, err error) bool {
			if err != nil {
				return yield(nil, err)
			}
			key := tupleKey(t)
			if _, dup := seen[key]; dup {
				return true
			}
			seen[key] = struct{}{}
			return yield(t, nil)
		}
		for _, left := range lefts {
			if !j.leftMatches(left, dedup) {
				return
			}
		}
		for row := 1; row <= j.rows; row++ {
			if !j.rightMatches(lefts, row, dedup) {
				return
			}
		}
	}
}
