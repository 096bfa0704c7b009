package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/YuitoSato/gosmartcast/smartcast/config"
)

func newCompileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <in> <out>",
		Short: "Convert a contract file to the format implied by the output extension",
		Long: `Validates the input contract file and writes it to the output path.
An output ending in .msgpack or .mpk is written as msgpack, anything else as YAML.
Example) smartcast-contracts compile .smartcast.yaml contracts.msgpack`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCompile(cmd, args[0], args[1])
		},
	}
}

func (a *app) runCompile(cmd *cobra.Command, in, out string) error {
	f, err := config.LoadFile(in)
	if err != nil {
		return err
	}
	a.logger.Debug("compiling contracts", zap.String("in", in), zap.String("out", out), zap.String("format", formatName(config.FormatOf(out))), zap.Int("entries", len(f.Contracts)))
	if err := f.Save(out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d contracts)\n", out, len(f.Contracts))
	return nil
}
