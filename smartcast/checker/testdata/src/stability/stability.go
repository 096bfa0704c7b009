package stability

func show(...any) bool { return true }

type Counter struct {
	n *int
}

func (c *Counter) Reset() { c.n = nil }

func Captured() int {
	var p *int
	f := func() {
		x := 1
		p = &x
	}
	f()
	return *p
}

func AddressTaken() int {
	var p *int
	pp := &p
	*pp = new(int)
	return *p
}

func Literal() func() int {
	return func() int {
		var q *int
		return *q // want "nil dereference: q is always nil here"
	}
}

func Capture(p *int) func() int {
	if p == nil {
		return func() int { return *p }
	}
	return nil
}

func PointerMethod() int {
	var c Counter
	c.n = new(int)
	c.Reset()
	return *c.n
}

func Global() int {
	if global == nil {
		return 0
	}
	show(global)
	return *global
}

var global *int

func ThroughPointer(c *Counter) int {
	if c.n == nil {
		return 0
	}
	show(c.n)
	return *c.n
}

func Stable(c Counter) int {
	if c.n == nil {
		return 0
	}
	show(c.n) // want `c.n is non-nil`
	return *c.n
}
