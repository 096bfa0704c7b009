package deref

type Node struct {
	Next *Node
	Val  int
}

// Len accepts a nil receiver.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return 1 + n.Next.Len()
}

func (n Node) Value() int { return n.Val }

type Container struct {
	Node *Node
}

func Direct() int {
	var n *Node
	return n.Val // want "nil dereference: n is always nil here"
}

func AfterCheck(n *Node) int {
	if n == nil {
		return n.Val // want "nil dereference: n is always nil here"
	}
	return n.Val
}

func Star() int {
	var p *int
	return *p // want "nil dereference: p is always nil here"
}

func ValueMethod() int {
	var n *Node
	return n.Value() // want "nil dereference: n is always nil here"
}

func PointerMethod() int {
	var n *Node
	return n.Len()
}

func Reassigned(n *Node) int {
	n = nil
	n = &Node{}
	return n.Val
}

func Interface() string {
	var err error
	return err.Error() // want "nil dereference: err is always nil here"
}

func Field(c Container) int {
	if c.Node == nil {
		return c.Node.Val // want "nil dereference: c.Node is always nil here"
	}
	return c.Node.Val
}

func FieldReset(c Container) int {
	if c.Node == nil {
		c = Container{Node: &Node{}}
	}
	return c.Node.Val
}

func NamedResult() (n *Node) {
	_ = n.Val // want "nil dereference: n is always nil here"
	return n
}

func Derefed(n *Node) int {
	v := n.Val
	if n == nil { // want "condition n == nil is always false"
		return 0
	}
	return v
}
