package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"astrosched/internal/pipeline"
	"astrosched/internal/suntime"
)

type compileOptions struct {
	workbooks []string
	out       string
	ics       string
	year      int
}

func newCompileCmd(root *rootOptions) *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile every schedule into one import document",
		Long: `Load the schedules from the config file and any workbooks, resolve them
against local sunrise and sunset for every day of their reference year and
write one combined import document.

Examples:
  # Single workbook, document next to it
  astrosched compile --workbook site.xlsx --out site.xml

  # Everything in the config, with a calendar preview
  astrosched compile -c astrosched.yaml --ics preview.ics

  # Re-run a config for next year
  astrosched compile -c astrosched.yaml --year 2026
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompile(cmd, root, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.workbooks, "workbook", "w", nil, "Workbook to compile (repeatable)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output XML path (overrides config)")
	cmd.Flags().StringVar(&opts.ics, "ics", "", "Also write a calendar preview to this path")
	cmd.Flags().IntVar(&opts.year, "year", 0, "Override the reference year of every schedule")
	return cmd
}

func runCompile(cmd *cobra.Command, root *rootOptions, opts *compileOptions) error {
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	popts := pipeline.Options{Year: opts.year}
	if root.configPath != "" {
		popts.BaseDir = filepath.Dir(root.configPath)
	}

	// Paths given on the command line are relative to the working directory;
	// paths from the config file are relative to the file.
	xmlPath := popts.Resolve(cfg.Output)
	if opts.out != "" {
		xmlPath = opts.out
	}
	icsPath := popts.Resolve(cfg.ICSOutput)
	if opts.ics != "" {
		icsPath = opts.ics
	}
	wbs := make([]string, 0, len(opts.workbooks))
	for _, wb := range opts.workbooks {
		abs, err := filepath.Abs(wb)
		if err != nil {
			return err
		}
		wbs = append(wbs, abs)
	}
	popts.Workbooks = wbs

	res, err := pipeline.Compile(cmd.Context(), cfg, suntime.NewAstroSource(0), popts)
	if err != nil {
		return err
	}
	if err := res.Write(xmlPath, icsPath); err != nil {
		return err
	}

	cmd.Printf("%d schedule(s), %d day events -> %s\n", len(res.Set.Schedules), res.Set.EventCount(), xmlPath)
	return nil
}
