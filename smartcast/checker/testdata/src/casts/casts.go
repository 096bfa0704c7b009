package casts

import "fmt"

type Square struct {
	Side int
}

func show(...any) bool { return true }

func NilCheck(p *int) {
	if p != nil {
		show(p) // want `p is non-nil`
	}
	show(p)
}

func EarlyReturn(p *int) int {
	if p == nil {
		return 0
	}
	show(p) // want `p is non-nil`
	return *p
}

func Assigned() {
	var p *int
	show(p) // want `p is nil`
	p = new(int)
	show(p) // want `p is non-nil`
}

func Stringer(v any) {
	if s, ok := v.(fmt.Stringer); ok {
		show(s, v) // want `s is non-nil` `v is non-nil and fmt.Stringer`
	}
}

func Flag(p *int) {
	ok := p != nil
	if ok {
		show(p) // want `p is non-nil`
	}
}

func ShortCircuit(p *Square) bool {
	return p != nil && show(p) // want `p is non-nil`
}

func ShortCircuitOr(p *Square) bool {
	return p == nil || show(p) // want `p is non-nil`
}

func Switch(v any) {
	switch x := v.(type) {
	case *Square:
		show(v) // want `v is non-nil and \*Square`
	case nil:
		show(v, x) // want `v is nil` `x is nil`
	}
}

func TagSwitch(p *int) int {
	switch p {
	case nil:
		return 0
	}
	show(p) // want `p is non-nil`
	return *p
}

func Alias(p *int) int {
	q := p
	if q == nil {
		return 0
	}
	show(p) // want `p is non-nil`
	return *p
}

func AliasBroken(p *int) int {
	q := p
	p = nil
	show(p, q) // want `p is nil`
	if q == nil {
		return 0
	}
	return *q
}

func Boxed(p *Square) {
	var v any = p
	show(v) // want `v is non-nil`
}

func Asserted(v any) int {
	sq := v.(*Square)
	show(v) // want `v is non-nil and \*Square`
	return sq.Side
}
