package main

import (
	"encoding/json"
	"fmt"
	"go/parser"
	"go/token"
	"go/types"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/YuitoSato/gosmartcast/smartcast/contract"
	"github.com/YuitoSato/gosmartcast/smartcast/dfa"
)

type evalOptions struct {
	params []string
	absent []string
	nils   []string
	truth  bool
	json   bool
}

func newEvalCmd(a *app) *cobra.Command {
	opts := &evalOptions{}
	cmd := &cobra.Command{
		Use:   "eval <effect>",
		Short: "Evaluate the condition of one contract effect",
		Long: `Binds the effect to fresh parameters of a function returning bool, assumes a
call returned the value given by --truth and prints the facts the effect then
implies, or "contradiction" when its condition cannot hold. An effect on the
other return value implies nothing; returns() holds whatever the call returned.
Parameter types are limited to predeclared types and pointer, slice and map
types built from them.
Example) smartcast-contracts eval "returns(true) implies p != nil" --params p:*int`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEval(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.params, "params", nil, "Parameters as name or name:type (default type any)")
	cmd.Flags().StringSliceVar(&opts.absent, "absent", nil, "Parameters whose argument could not be resolved")
	cmd.Flags().StringSliceVar(&opts.nils, "nil", nil, "Parameters known to be nil before the evaluation")
	cmd.Flags().BoolVar(&opts.truth, "truth", true, "Value the call returned (false with --truth=false)")
	cmd.Flags().BoolVarP(&opts.json, "json", "j", false, "Output as JSON")
	return cmd
}

// evalResult is the JSON output of eval.
type evalResult struct {
	Effect        string     `json:"effect"`
	Truth         bool       `json:"truth"`
	Contradiction bool       `json:"contradiction"`
	Facts         []evalFact `json:"facts,omitempty"`
}

type evalFact struct {
	Var    string   `json:"var"`
	Nil    bool     `json:"nil,omitempty"`
	NotNil bool     `json:"notNil,omitempty"`
	Types  []string `json:"types,omitempty"`
}

func (a *app) runEval(cmd *cobra.Command, src string, opts *evalOptions) error {
	params, err := parseParams(opts.params)
	if err != nil {
		return err
	}
	sig := types.NewSignatureType(nil, nil, nil, types.NewTuple(params...), types.NewTuple(types.NewParam(token.NoPos, nil, "", types.Typ[types.Bool])), false)
	effect, err := contract.ParseEffect(src, contract.NewSignatureBinder(nil, sig))
	if err != nil {
		return err
	}
	a.logger.Debug("parsed effect", zap.Stringer("effect", effect))

	var applies bool
	switch effect.Returns {
	case contract.ReturnsAny:
		applies = true
	case contract.ReturnsTrue:
		applies = opts.truth
	case contract.ReturnsFalse:
		applies = !opts.truth
	default:
		return fmt.Errorf("%s: eval takes effects on a bool result: returns(), returns(true) or returns(false)", effect)
	}

	absent := make(map[string]bool, len(opts.absent))
	for _, name := range opts.absent {
		absent[strings.TrimSpace(name)] = true
	}
	nils := make(map[string]bool, len(opts.nils))
	for _, name := range opts.nils {
		nils[strings.TrimSpace(name)] = true
	}

	storage := dfa.NewVariableStorage()
	flow := dfa.EmptyFlow()
	// Index 0 is the receiver; fresh functions have none.
	args := make([]dfa.DataFlowVariable, len(params)+1)
	for i, p := range params {
		v := storage.Real(p, p.Type())
		if nils[p.Name()] {
			flow = flow.WithTypeStatement(dfa.TypeStatement{Var: v, Nil: true})
		}
		if absent[p.Name()] {
			continue
		}
		args[i+1] = v
	}

	r := dfa.NoInformation()
	if applies {
		ls := dfa.NewLogicSystem(dfa.WithLogger(a.logger))
		r, _, err = ls.ApproveContractStatement(flow, effect.Condition, args, nil, false, false)
		if err != nil {
			return err
		}
	}

	res := evalResult{Effect: effect.String(), Truth: opts.truth, Contradiction: r.IsContradiction()}
	ts := r.Statements()
	for _, v := range ts.Variables() {
		s := ts[v]
		if s.IsEmpty() {
			continue
		}
		f := evalFact{Var: v.String(), Nil: s.Nil, NotNil: s.NotNil}
		for _, t := range s.Exact {
			f.Types = append(f.Types, types.TypeString(t, nil))
		}
		res.Facts = append(res.Facts, f)
	}

	out := cmd.OutOrStdout()
	if opts.json {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	switch {
	case res.Contradiction:
		fmt.Fprintln(out, "contradiction")
	case len(res.Facts) == 0:
		fmt.Fprintln(out, "no information")
	default:
		for _, v := range ts.Variables() {
			if !ts[v].IsEmpty() {
				fmt.Fprintln(out, ts[v].String())
			}
		}
	}
	return nil
}

// parseParams builds the parameters named by specs of the form name or
// name:type.
func parseParams(specs []string) ([]*types.Var, error) {
	universe := contract.NewSignatureBinder(nil, types.NewSignatureType(nil, nil, nil, nil, nil, false))
	seen := make(map[string]bool, len(specs))
	params := make([]*types.Var, 0, len(specs))
	for _, spec := range specs {
		name, typ, _ := strings.Cut(strings.TrimSpace(spec), ":")
		if !token.IsIdentifier(name) {
			return nil, fmt.Errorf("invalid parameter %q", spec)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate parameter %q", name)
		}
		seen[name] = true

		t := types.Type(types.Universe.Lookup("any").Type())
		if typ = strings.TrimSpace(typ); typ != "" {
			expr, err := parser.ParseExpr(typ)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: invalid type %q: %w", name, typ, err)
			}
			t, err = universe.Type(expr)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", name, err)
			}
		}
		params = append(params, types.NewParam(token.NoPos, nil, name, t))
	}
	return params, nil
}
