package use

import "crosspkg/lib"

func Present() int {
	var p *int
	if lib.Present(p) { // want `condition lib\.Present\(p\) is always false`
		return *p
	}
	return 0
}

func Absent(p *int) int {
	if lib.Absent(p) {
		return *p // want "nil dereference: p is always nil here"
	}
	return *p
}

func Must(p *int) int {
	lib.MustNotNil(p)
	if p == nil { // want "condition p == nil is always false"
		return 0
	}
	return *p
}

func Validate(c *lib.Config) string {
	if err := lib.Validate(c); err != nil {
		return ""
	}
	if c != nil { // want "condition c != nil is always true"
		return c.Name
	}
	return "unreachable"
}

func Check(v lib.Checker, p *int) int {
	if !v.Check(p) {
		return 0
	}
	if p == nil { // want "condition p == nil is always false"
		return 0
	}
	return *p
}

func Plain(p *int) int {
	if lib.Plain(p) {
		if p == nil {
			return 0
		}
		return *p
	}
	return 0
}
