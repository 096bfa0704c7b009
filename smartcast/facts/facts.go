// Package facts holds the analysis facts exported by the smartcast analyzer
// and the per-pass cache through which contracts are resolved.
package facts

import (
	"encoding/gob"
	"strings"
)

func init() {
	gob.Register(&ContractFact{})
}

// ContractFact carries the contract directives of a function so that callers
// in other packages can evaluate them.
// Attached to *types.Func objects.
type ContractFact struct {
	Effects []string // Effect sources, e.g. "returns(true) implies x != nil"
}

func (*ContractFact) AFact() {}

func (f *ContractFact) String() string {
	return "contract[" + strings.Join(f.Effects, "; ") + "]"
}

// AddEffect adds an effect source if not already present.
func (f *ContractFact) AddEffect(src string) {
	for _, existing := range f.Effects {
		if existing == src {
			return
		}
	}
	f.Effects = append(f.Effects, src)
}
