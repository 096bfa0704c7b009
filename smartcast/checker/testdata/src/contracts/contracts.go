package contracts

import "errors"

type Square struct {
	Side int
}

func show(...any) bool { return true }

//smartcast:contract returns(true) implies p != nil
func Present(p *int) bool { return p != nil }

//smartcast:contract returns() implies p != nil
func MustNotNil(p *int) {
	if p == nil {
		panic("nil")
	}
}

//smartcast:contract returns(nil) implies sq != nil
func Validate(sq *Square) error {
	if sq == nil {
		return errors.New("nil square")
	}
	return nil
}

//smartcast:contract returns(true) implies v.(T)
func Is[T any](v any) bool {
	_, ok := v.(T)
	return ok
}

//smartcast:contract returns(false) implies x != nil
func IsNil(x any) bool { return x == nil }

//smartcast:contract returns(true) implies sq != nil
func (sq *Square) Valid() bool { return sq != nil }

func UsePresent(p *int) int {
	if Present(p) {
		show(p) // want `p is non-nil`
		return *p
	}
	return 0
}

func UseAbsent() int {
	var p *int
	if Present(p) { // want `condition Present\(p\) is always false`
		return *p
	}
	return 0
}

func UseMust(p *int) int {
	MustNotNil(p)
	show(p) // want `p is non-nil`
	return *p
}

func UseValidate(sq *Square) int {
	if err := Validate(sq); err != nil {
		return 0
	}
	show(sq) // want `sq is non-nil`
	return sq.Side
}

func UseIs(v any) {
	if Is[*Square](v) {
		show(v) // want `v is non-nil and \*Square`
	}
}

func UseValid(sq *Square) int {
	if sq.Valid() {
		show(sq) // want `sq is non-nil`
		return sq.Side
	}
	return 0
}

func UseStored(p *int) int {
	ok := Present(p)
	if !ok {
		return 0
	}
	show(p) // want `p is non-nil`
	return *p
}

func UseNegated(p *int) int {
	if !Present(p) {
		return 0
	}
	show(p) // want `p is non-nil`
	return *p
}

func UseBoxed(p *int) int {
	if !IsNil(p) {
		show(p)
		if p == nil {
			return 0
		}
		return *p
	}
	return 0
}

func UseUnboxed(v any) {
	if !IsNil(v) {
		show(v) // want `v is non-nil`
	}
}
