package main

import (
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"astrosched/internal/output"
	"astrosched/internal/pipeline"
)

func newDumpConfigCmd(root *rootOptions) *cobra.Command {
	var (
		workbooks []string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "dump-config",
		Short: "Print the loaded schedule configs as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			popts := pipeline.Options{Workbooks: workbooks}
			if root.configPath != "" {
				popts.BaseDir = filepath.Dir(root.configPath)
			}
			for i, wb := range popts.Workbooks {
				if popts.Workbooks[i], err = filepath.Abs(wb); err != nil {
					return err
				}
			}

			scs, err := pipeline.LoadSchedules(cfg, popts)
			if err != nil {
				return err
			}

			write := func(w io.Writer) error {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "    ")
				return enc.Encode(scs)
			}
			if out == "" {
				return write(cmd.OutOrStdout())
			}
			if err := output.WriteFile(out, 0o644, write); err != nil {
				return err
			}
			cmd.Printf("configuration written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&workbooks, "workbook", "w", nil, "Workbook to include (repeatable)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write JSON to this file instead of stdout")
	return cmd
}
