package models

import (
	"fmt"
	"strings"
)

// Card is a rank+suit token such as "A♠" or "10H". Suits are accepted
// either as symbols (♠♥♦♣) or letters (S/H/D/C) since the admin consoles
// send both; rank comparison is what decides a winning deal.
type Card string

var validRanks = map[string]bool{
	"A": true, "2": true, "3": true, "4": true, "5": true, "6": true,
	"7": true, "8": true, "9": true, "10": true, "J": true, "Q": true, "K": true,
}

var suitAliases = map[string]string{
	"♠": "♠", "♥": "♥", "♦": "♦", "♣": "♣",
	"S": "♠", "H": "♥", "D": "♦", "C": "♣",
	"s": "♠", "h": "♥", "d": "♦", "c": "♣",
}

// ParseCard validates a card token and returns it in canonical form
// (uppercase rank + suit symbol).
func ParseCard(token string) (Card, error) {
	s := strings.TrimSpace(token)
	if len(s) < 2 {
		return "", fmt.Errorf("card token too short: %q", token)
	}

	runes := []rune(s)
	suitRune := string(runes[len(runes)-1])
	rank := strings.ToUpper(string(runes[:len(runes)-1]))

	suit, ok := suitAliases[suitRune]
	if !ok {
		return "", fmt.Errorf("unknown suit in card %q", token)
	}
	if !validRanks[rank] {
		return "", fmt.Errorf("unknown rank in card %q", token)
	}

	return Card(rank + suit), nil
}

// Rank returns the rank portion of a canonical card.
func (c Card) Rank() string {
	runes := []rune(string(c))
	if len(runes) < 2 {
		return ""
	}
	return string(runes[:len(runes)-1])
}

// MatchesRank reports whether two cards share a rank, which is the Andar
// Bahar winning condition against the opening card.
func (c Card) MatchesRank(other Card) bool {
	return c.Rank() != "" && c.Rank() == other.Rank()
}
