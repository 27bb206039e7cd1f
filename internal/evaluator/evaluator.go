// Package evaluator ranks 5-7 card poker hands into a total order.
//
// A HandRank packs the hand category into the high nibble of a uint32 and
// the tie-break ranks into the nibbles below it, so two hands compare with
// plain integer comparison. Equal HandRanks denote a split pot.
package evaluator

import (
	"math/bits"

	"github.com/lox/pokerroom/internal/deck"
)

// HandRank represents the strength of a poker hand
type HandRank uint32

// The high 4 bits are the hand category, the remaining bits are for tie-breaking
const (
	HighCard HandRank = iota << 28
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// Category returns the category of the hand (pair, flush, etc.)
func (hr HandRank) Category() HandRank {
	return hr & 0xF0000000
}

// String returns a human-readable hand description
func (hr HandRank) String() string {
	switch hr.Category() {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// Compare compares two ranks and returns 1 if a wins, -1 if b wins, 0 for tie
func Compare(a, b HandRank) int {
	if a > b {
		return 1
	} else if a < b {
		return -1
	}
	return 0
}

// Evaluate returns the rank of the best 5-card hand makeable from the given
// cards. Between 5 and 7 cards must be supplied; fewer yield HighCard-level
// garbage, more are ignored by the rules anyway, so callers are expected to
// pass hole cards plus the revealed board only.
func Evaluate(cards []deck.Card) HandRank {
	var suitMasks [4]uint16 // bit r set = rank r+2 present in suit
	var counts [13]uint8

	for _, c := range cards {
		bit := uint16(1) << (c.Value() - 2)
		suitMasks[c.Suit] |= bit
		counts[c.Value()-2]++
	}
	rankMask := suitMasks[0] | suitMasks[1] | suitMasks[2] | suitMasks[3]

	// Flush suit, if any
	flushSuit := -1
	for suit, mask := range suitMasks {
		if bits.OnesCount16(mask) >= 5 {
			flushSuit = suit
			break
		}
	}

	if flushSuit >= 0 {
		if high := straightHigh(suitMasks[flushSuit]); high >= 0 {
			return StraightFlush | HandRank(high)
		}
	}

	// Count-based categories
	if quad := highestWithCount(counts, 4); quad >= 0 {
		kicker := highestExcept(counts, quad, -1)
		return FourOfAKind | HandRank(quad)<<4 | HandRank(kicker)
	}

	trips := highestWithCount(counts, 3)
	if trips >= 0 {
		// Second trips qualifies as the pair of a full house
		if pair := highestPairedExcept(counts, trips); pair >= 0 {
			return FullHouse | HandRank(trips)<<4 | HandRank(pair)
		}
	}

	if flushSuit >= 0 {
		return Flush | topRanks(suitMasks[flushSuit], 5)
	}

	if high := straightHigh(rankMask); high >= 0 {
		return Straight | HandRank(high)
	}

	if trips >= 0 {
		k1 := highestExcept(counts, trips, -1)
		k2 := highestExcept(counts, trips, k1)
		return ThreeOfAKind | HandRank(trips)<<8 | HandRank(k1)<<4 | HandRank(k2)
	}

	pairHi := highestWithCount(counts, 2)
	if pairHi >= 0 {
		if pairLo := highestPairedExcept(counts, pairHi); pairLo >= 0 {
			kicker := highestExcept(counts, pairHi, pairLo)
			return TwoPair | HandRank(pairHi)<<8 | HandRank(pairLo)<<4 | HandRank(kicker)
		}
		k1 := highestExcept(counts, pairHi, -1)
		k2 := highestExcept(counts, pairHi, k1)
		k3 := highestKicker(counts, pairHi, k1, k2)
		return Pair | HandRank(pairHi)<<12 | HandRank(k1)<<8 | HandRank(k2)<<4 | HandRank(k3)
	}

	return HighCard | topRanks(rankMask, 5)
}

// straightHigh returns the high-card rank index of the best straight in the
// given rank mask, or -1. The wheel (A-2-3-4-5) reports a five-high straight.
func straightHigh(mask uint16) int {
	for high := 12; high >= 4; high-- {
		straightMask := uint16(0x1F) << (high - 4)
		if mask&straightMask == straightMask {
			return high
		}
	}
	// Ace plays low: A + 2-3-4-5 is a five-high straight
	if mask&0x100F == 0x100F {
		return 3
	}
	return -1
}

// topRanks packs the top n set ranks of mask into descending nibbles
func topRanks(mask uint16, n int) HandRank {
	var packed HandRank
	found := 0
	for rank := 12; rank >= 0 && found < n; rank-- {
		if mask&(1<<rank) != 0 {
			packed = packed<<4 | HandRank(rank)
			found++
		}
	}
	return packed
}

// highestWithCount finds the highest rank held at least n times
func highestWithCount(counts [13]uint8, n uint8) int {
	for rank := 12; rank >= 0; rank-- {
		if counts[rank] >= n {
			return rank
		}
	}
	return -1
}

// highestPairedExcept finds the highest rank other than except held at
// least twice
func highestPairedExcept(counts [13]uint8, except int) int {
	for rank := 12; rank >= 0; rank-- {
		if rank != except && counts[rank] >= 2 {
			return rank
		}
	}
	return -1
}

// highestExcept finds the highest present rank excluding two used ranks
func highestExcept(counts [13]uint8, a, b int) int {
	for rank := 12; rank >= 0; rank-- {
		if rank != a && rank != b && counts[rank] > 0 {
			return rank
		}
	}
	return 0
}

func highestKicker(counts [13]uint8, a, b, c int) int {
	for rank := 12; rank >= 0; rank-- {
		if rank != a && rank != b && rank != c && counts[rank] > 0 {
			return rank
		}
	}
	return 0
}
