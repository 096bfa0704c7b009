package unreachable

func Dead(p *int) {
	if p == nil {
		return
	}
	if p == nil { // want "condition p == nil is always false"
		println("dead") // want "unreachable"
	}
}

func Exhausted(v any) int {
	switch v.(type) {
	case nil:
		return 0
	}
	if v == nil { // want "condition v == nil is always false"
		return 1 // want "unreachable"
	}
	return 2
}

func Panics() int {
	panic("boom")
}

func Live(p *int) int {
	if p != nil {
		return *p
	}
	return 0
}
