package useignored

import "ignored/lib"

// The contract of an ignored package is not applied, so the call decides
// nothing about p.
func Use() int {
	var p *int
	if lib.Present(p) {
		return *p // want "nil dereference: p is always nil here"
	}
	return 0
}
