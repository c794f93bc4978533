// Copyright (c) 2025 The Vetrix developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashing

import "math/big"

// SlashingSpans partitions a staker's history into slashing spans. Spans
// are gap-free since the first slash: the current span is open-ended,
// prior span lengths are stored most recent first.
type SlashingSpans struct {
	// SpanIndex is the index of the open span.
	SpanIndex uint32
	// LastStart is the first era of the open span.
	LastStart uint32
	// LastNonzeroSlash is the era of the most recent nonzero slash.
	LastNonzeroSlash uint32
	// Prior holds the lengths of closed spans, most recent first.
	Prior []uint32
}

// newSpans opens span 0 at the start of the bonding window.
func newSpans(windowStart uint32) SlashingSpans {
	return SlashingSpans{LastStart: windowStart}
}

// span is one resolved slashing span.
type span struct {
	index  uint32
	start  uint32
	length uint32
	open   bool
}

func (s *span) containsEra(era uint32) bool {
	return era >= s.start && (s.open || era < s.start+s.length)
}

// walk visits every span most recent first, stopping when fn returns false.
func (s *SlashingSpans) walk(fn func(sp span) bool) {
	last := span{index: s.SpanIndex, start: s.LastStart, open: true}
	if !fn(last) {
		return
	}
	start := s.LastStart
	index := s.SpanIndex
	for _, length := range s.Prior {
		start -= length
		index--
		if !fn(span{index: index, start: start, length: length}) {
			return
		}
	}
}

// eraSpan resolves the span containing the era.
func (s *SlashingSpans) eraSpan(era uint32) (span, bool) {
	var (
		found bool
		hit   span
	)
	s.walk(func(sp span) bool {
		if sp.containsEra(era) {
			hit, found = sp, true
			return false
		}
		return true
	})
	return hit, found
}

// count returns the number of spans, the open one included.
func (s *SlashingSpans) count() uint32 {
	return uint32(len(s.Prior)) + 1
}

// endSpan closes the open span at era now, opening the next one at
// now+1. A span ends exactly when a full slash lands in it.
func (s *SlashingSpans) endSpan(now uint32) bool {
	nextStart := now + 1
	if nextStart <= s.LastStart {
		return false
	}
	s.Prior = append([]uint32{nextStart - s.LastStart}, s.Prior...)
	s.LastStart = nextStart
	s.SpanIndex++
	return true
}

// prune drops spans that ended before windowStart, returning the index
// range [from, to) of the dropped spans so their records can go too.
func (s *SlashingSpans) prune(windowStart uint32) (from, to uint32, pruned bool) {
	earliest := s.SpanIndex - uint32(len(s.Prior))
	cut := -1
	pos := 0
	s.walk(func(sp span) bool {
		if sp.open {
			return true
		}
		if sp.start+sp.length <= windowStart {
			cut = pos
			return false
		}
		pos++
		return true
	})
	if cut >= 0 {
		s.Prior = s.Prior[:cut]
		pruned = true
		from = earliest
		to = s.SpanIndex - uint32(len(s.Prior))
	}
	if windowStart > s.LastStart {
		s.LastStart = windowStart
	}
	return from, to, pruned
}

// SpanRecord tracks the running-maximum slash of one span and the
// reporter rewards already paid for it.
type SpanRecord struct {
	Slashed *big.Int
	PaidOut *big.Int
}
