package smartcast

import (
	"fmt"
	"go/ast"
	"go/types"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/tools/go/analysis"

	"github.com/YuitoSato/gosmartcast/smartcast/checker"
	"github.com/YuitoSato/gosmartcast/smartcast/config"
	"github.com/YuitoSato/gosmartcast/smartcast/contract"
	"github.com/YuitoSato/gosmartcast/smartcast/facts"
	"github.com/YuitoSato/gosmartcast/smartcast/internal"
)

// resolver finds the contract of a called function: the directives of the
// package under analysis first, then the facts exported by its dependencies,
// then the contract files in effect for the package.
type resolver struct {
	pass   *analysis.Pass
	files  *config.Contracts
	logger *zap.Logger
	cache  *facts.ContractCache

	// local holds the functions of this package declared with directives.
	local map[*types.Func]bool

	// factMu serializes fact imports; Lookup runs on every session's goroutine.
	factMu sync.Mutex
}

func newResolver(pass *analysis.Pass, logger *zap.Logger) (*resolver, error) {
	files, err := config.Load(packageDir(pass), contractsFile)
	if err != nil {
		return nil, err
	}
	r := &resolver{
		pass:   pass,
		files:  files,
		logger: logger,
		local:  make(map[*types.Func]bool),
	}
	r.cache = facts.NewContractCache(r.resolve)
	logger.Debug("contract files loaded", zap.String("dir", packageDir(pass)), zap.Int("funcs", files.Len()))
	r.collect()
	return r, nil
}

// packageDir returns the directory of the package's first file, or "" for a
// package without files.
func packageDir(pass *analysis.Pass) string {
	if len(pass.Files) == 0 {
		return ""
	}
	tf := pass.Fset.File(pass.Files[0].Pos())
	if tf == nil {
		return ""
	}
	return filepath.Dir(tf.Name())
}

func (r *resolver) isLocal(fn *types.Func) bool {
	return r.local[fn.Origin()]
}

// collect parses the directives on every function, method and interface
// method declared in the package. Valid contracts are exported as facts;
// invalid ones are reported once, here, and excluded.
func (r *resolver) collect() {
	for _, f := range r.pass.Files {
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				r.declare(d.Name, d.Doc)
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					iface, ok := ts.Type.(*ast.InterfaceType)
					if !ok || iface.Methods == nil {
						continue
					}
					for _, m := range iface.Methods.List {
						for _, name := range m.Names {
							r.declare(name, m.Doc)
						}
					}
				}
			}
		}
	}
}

func (r *resolver) declare(name *ast.Ident, doc *ast.CommentGroup) {
	fact := &facts.ContractFact{}
	for _, src := range contract.DirectiveSources(doc) {
		fact.AddEffect(src)
	}
	srcs := fact.Effects
	if len(srcs) == 0 {
		return
	}
	fn, ok := r.pass.TypesInfo.Defs[name].(*types.Func)
	if !ok {
		return
	}
	r.local[fn] = true

	sig := fn.Type().(*types.Signature)
	ct, err := contract.ParseContract(fn.FullName(), srcs, contract.NewSignatureBinder(r.pass.Pkg, sig))
	if err != nil {
		r.pass.Report(analysis.Diagnostic{
			Pos:      name.Pos(),
			Category: checker.CategoryContract,
			Message:  fmt.Sprintf("invalid contract on %s: %v", fn.FullName(), err),
		})
		r.cache.Store(fn, nil, err)
		return
	}

	r.logger.Debug("contract declared", zap.String("func", fn.FullName()), zap.Stringer("contract", ct))
	r.cache.Store(fn, ct, nil)
	r.pass.ExportObjectFact(fn, fact)
}

func (r *resolver) resolve(fn *types.Func) (*contract.Contract, error) {
	if fn.Pkg() == nil {
		return nil, nil
	}
	if internal.ShouldIgnorePackage(fn.Pkg().Path()) {
		return nil, nil
	}
	sig, ok := fn.Type().(*types.Signature)
	if !ok {
		return nil, nil
	}

	srcs, from := r.imported(fn), "fact"
	reflectNil := false
	if len(srcs) == 0 {
		effects, ok := r.files.Effects(fn.FullName())
		if !ok {
			return nil, nil
		}
		srcs, from = effects, "contract file"
		reflectNil = r.files.ReflectNil(fn.FullName())
	}

	ct, err := contract.ParseContract(fn.FullName(), srcs, contract.NewSignatureBinder(fn.Pkg(), sig))
	if err != nil {
		return nil, err
	}
	ct.ReflectNil = reflectNil
	r.logger.Debug("contract resolved", zap.String("func", fn.FullName()), zap.String("from", from), zap.Stringer("contract", ct))
	return ct, nil
}

// imported returns the effects exported by the package declaring fn.
func (r *resolver) imported(fn *types.Func) []string {
	if fn.Pkg() == r.pass.Pkg {
		return nil
	}
	r.factMu.Lock()
	defer r.factMu.Unlock()
	var fact facts.ContractFact
	if !r.pass.ImportObjectFact(fn, &fact) {
		return nil
	}
	return fact.Effects
}
