package tensor

import (
	"fmt"
	"strings"
)

// operand pairs a tensor with its index string during a contraction.
type operand[F Element] struct {
	t   *Dense[F]
	idx string
}

// plan is the iteration space of an index expression: every distinct
// letter, its extent, and per operand the element stride of each letter.
type plan struct {
	letters []rune
	extents []int
	strides [][]int
}

func newPlan[F Element](ops ...operand[F]) (*plan, error) {
	p := &plan{}
	pos := map[rune]int{}
	for _, op := range ops {
		if err := op.t.check(); err != nil {
			return nil, err
		}
		runes := []rune(op.idx)
		if len(runes) != op.t.Rank() {
			return nil, fmt.Errorf("%w: index %q has %d letters for rank %d", ErrShape, op.idx, len(runes), op.t.Rank())
		}
		for axis, r := range runes {
			extent := op.t.shape[axis]
			if i, ok := pos[r]; ok {
				if p.extents[i] != extent {
					return nil, fmt.Errorf("%w: index %q has extents %d and %d", ErrShape, string(r), p.extents[i], extent)
				}
				continue
			}
			pos[r] = len(p.letters)
			p.letters = append(p.letters, r)
			p.extents = append(p.extents, extent)
		}
	}
	for _, op := range ops {
		strides := make([]int, len(p.letters))
		for axis, r := range []rune(op.idx) {
			strides[pos[r]] += op.t.strides[axis]
		}
		p.strides = append(p.strides, strides)
	}
	return p, nil
}

// each visits every point of the iteration space with the element offset
// of each operand.
func (p *plan) each(visit func(offsets []int)) {
	counter := make([]int, len(p.letters))
	offsets := make([]int, len(p.strides))
	for {
		visit(offsets)
		l := len(counter) - 1
		for ; l >= 0; l-- {
			counter[l]++
			for o := range offsets {
				offsets[o] += p.strides[o][l]
			}
			if counter[l] < p.extents[l] {
				break
			}
			for o := range offsets {
				offsets[o] -= counter[l] * p.strides[o][l]
			}
			counter[l] = 0
		}
		if l < 0 {
			return
		}
	}
}

func checkResultLetters(result string, sources ...string) error {
	for _, r := range result {
		found := false
		for _, s := range sources {
			if strings.ContainsRune(s, r) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: result index %q does not appear in any operand", ErrShape, string(r))
		}
	}
	return nil
}

// Contract computes C[ic] = alpha * sum A[ia]*B[ib] + beta * C[ic], summing
// over letters that do not appear in ic.
func Contract[F Element](alpha F, a *Dense[F], ia string, b *Dense[F], ib string, beta F, c *Dense[F], ic string) error {
	p, err := newPlan(operand[F]{a, ia}, operand[F]{b, ib}, operand[F]{c, ic})
	if err != nil {
		return err
	}
	if err := checkResultLetters(ic, ia, ib); err != nil {
		return err
	}
	if a == c || b == c {
		return fmt.Errorf("%w: result aliases an operand", ErrShape)
	}
	if err := c.Scale(beta); err != nil {
		return err
	}
	ad, bd, cd := a.data, b.data, c.data
	p.each(func(off []int) {
		cd[off[2]] += alpha * ad[off[0]] * bd[off[1]]
	})
	return nil
}

// Sum computes C[ic] = alpha * A[ia] + beta * B[ib], summing over letters
// of an operand that do not appear in ic.
func Sum[F Element](alpha F, a *Dense[F], ia string, beta F, b *Dense[F], ib string, c *Dense[F], ic string) error {
	if a == c || b == c {
		return fmt.Errorf("%w: result aliases an operand", ErrShape)
	}
	pa, err := newPlan(operand[F]{a, ia}, operand[F]{c, ic})
	if err != nil {
		return err
	}
	pb, err := newPlan(operand[F]{b, ib}, operand[F]{c, ic})
	if err != nil {
		return err
	}
	if err := checkResultLetters(ic, ia); err != nil {
		return err
	}
	if err := checkResultLetters(ic, ib); err != nil {
		return err
	}
	if err := c.Scale(0); err != nil {
		return err
	}
	ad, bd, cd := a.data, b.data, c.data
	pa.each(func(off []int) {
		cd[off[1]] += alpha * ad[off[0]]
	})
	pb.each(func(off []int) {
		cd[off[1]] += beta * bd[off[0]]
	})
	return nil
}
