package main

import (
	"github.com/spf13/cobra"

	"astrosched/internal/workbook"
)

func newTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template [path]",
		Short: "Write a sample workbook to start from",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "TimeScheduleConfig.xlsx"
			if len(args) == 1 {
				path = args[0]
			}
			if err := workbook.WriteTemplate(path); err != nil {
				return err
			}
			cmd.Printf("template written to %s\n", path)
			return nil
		},
	}
}
