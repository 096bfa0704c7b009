package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/YuitoSato/gosmartcast/smartcast/config"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Validate contract files",
		Long: `Loads every contract file and checks that each entry names a function
and that every effect parses. Names and types are resolved only by the analyzer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, args)
		},
	}
}

func (a *app) runCheck(cmd *cobra.Command, paths []string) error {
	var errs []error
	for _, path := range paths {
		a.logger.Debug("checking contract file", zap.String("path", path), zap.String("format", formatName(config.FormatOf(path))))
		f, err := config.LoadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d contracts ok\n", path, len(f.Contracts))
	}
	return errors.Join(errs...)
}

func formatName(f config.Format) string {
	if f == config.FormatMsgpack {
		return "msgpack"
	}
	return "yaml"
}
