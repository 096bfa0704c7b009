package decl

//smartcast:contract returns(true) implies missing != nil
func Broken(p *int) bool { return p != nil } // want `invalid contract on decl\.Broken: malformed contract: unknown parameter "missing"`

//smartcast:contract returns(true) implies p != nil
func Fine(p *int) bool { return p != nil } // want Fine:`contract\[returns\(true\) implies p != nil\]`

// A repeated directive is exported once.
//
//smartcast:contract returns(true) implies p != nil
//smartcast:contract returns(true) implies p != nil
func Twice(p *int) bool { return p != nil } // want Twice:`contract\[returns\(true\) implies p != nil\]`

type Node struct {
	Next *Node
}

//smartcast:contract returns(true) implies n.Next != nil
func (n *Node) HasNext() bool { return n.Next != nil } // want `invalid contract on \(\*decl\.Node\)\.HasNext: malformed contract: n\.Next is not a parameter`

// Calls to a function with an invalid contract are not reported again.
func UseBroken(p *int) int {
	if Broken(p) {
		return 1
	}
	if Broken(p) {
		return 2
	}
	return 0
}

func UseFine(p *int) int {
	if Fine(p) {
		return *p
	}
	return 0
}
