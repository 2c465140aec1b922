package session

// Deck is the fixed vote domain: the Fibonacci estimation cards plus
// the coffee-break card. Votes travel as strings so the break card
// needs no special casing on the wire.
var Deck = []string{"0", "1", "2", "3", "5", "8", "13", "21", "34", "55", "89", "break"}

var deckSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Deck))
	for _, v := range Deck {
		m[v] = struct{}{}
	}
	return m
}()

func ValidVote(v string) bool {
	_, ok := deckSet[v]
	return ok
}
