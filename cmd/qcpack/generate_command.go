package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qcpack/qcpack/aimatch"
	"github.com/qcpack/qcpack/config"
	"github.com/qcpack/qcpack/locate"
	"github.com/qcpack/qcpack/observability"
	"github.com/qcpack/qcpack/pack"
	"github.com/qcpack/qcpack/pdfdoc"
	"github.com/qcpack/qcpack/report"
)

func newGenerateCommand(configFlag *string) *cobra.Command {
	var (
		reportPath string
		scriptPath string
		outPath    string
		pageOffset int
		audible    bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the annotated pack for a QC report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("page-offset") {
				cfg.PageOffset = pageOffset
			}
			if cmd.Flags().Changed("audible") {
				cfg.AudibleMode = audible
			}
			return runGenerate(cmd, cfg, reportPath, scriptPath, outPath, verbose)
		},
	}

	cmd.Flags().StringVarP(&reportPath, "report", "r", "", "QC report file (.xlsx or .csv)")
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "Script PDF")
	cmd.Flags().StringVarP(&outPath, "out", "o", "qc-pack.pdf", "Output PDF path")
	cmd.Flags().IntVar(&pageOffset, "page-offset", 0, "Offset added to report page numbers")
	cmd.Flags().BoolVar(&audible, "audible", false, "Prefix notes with MR/MW/ML role markers")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	_ = cmd.MarkFlagRequired("report")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func runGenerate(cmd *cobra.Command, cfg config.Config, reportPath, scriptPath, outPath string, verbose bool) error {
	ctx := cmd.Context()
	log := observability.NewWriterLogger(cmd.ErrOrStderr(), verbose)
	diags := &observability.Collector{Logger: log}

	source, err := report.Open(reportPath)
	if err != nil {
		return err
	}
	rows, err := source.Rows()
	if err != nil {
		return err
	}
	dialect, err := report.DetectDialect(rows)
	if err != nil {
		return err
	}
	log.Info("report dialect detected", observability.String("dialect", dialect.String()))

	extractor := report.Extractor{
		AudibleMode:      cfg.AudibleMode,
		GatingStatus:     cfg.Report.GatingStatus,
		AcceptedComments: cfg.Report.AcceptedComments,
		Diagnostics:      diags,
		Log:              log,
	}
	corrections, err := extractor.Extract(rows, dialect)
	if err != nil {
		return err
	}
	log.Info("corrections extracted", observability.Int("count", len(corrections)))

	scriptData, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	doc, err := pdfdoc.Load(scriptData)
	if err != nil {
		return err
	}
	annotator, err := pdfdoc.NewAnnotator(scriptData)
	if err != nil {
		return err
	}

	locator := &locate.Locator{Log: log}
	if cfg.Gemini.Enabled {
		locator.Fallback = aimatch.NewGemini(cfg.Gemini.APIKey,
			aimatch.WithModel(cfg.Gemini.Model),
			aimatch.WithTemperature(float32(cfg.Gemini.Temperature)))
	}

	assembler := &pack.Assembler{
		Source:     doc,
		Sink:       annotator,
		Locator:    locator,
		PageOffset: cfg.PageOffset,
		Style: pack.Style{
			UnderlineWidth: cfg.Style.UnderlineWidth,
			EmphasisWidth:  cfg.Style.EmphasisWidth,
			NotesFontSize:  cfg.Style.NotesFontSize,
			NotesBoxGray:   cfg.Style.NotesBoxGray,
		},
		Diagnostics: diags,
		Log:         log,
	}
	res, err := assembler.Assemble(ctx, corrections)
	if err != nil {
		return err
	}

	if res.PageCount == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no pages to include; nothing written")
		return nil
	}
	if err := os.WriteFile(outPath, res.Output, 0o644); err != nil {
		return fmt.Errorf("write pack: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d page(s)\n", outPath, res.PageCount)
	for _, pg := range res.Pages {
		fmt.Fprintf(cmd.OutOrStdout(), "  page %d: %d correction(s), %d located, %d unlocated\n",
			pg.Page, pg.Corrections, pg.Located, pg.Unlocated)
	}
	if n := diags.Count(observability.KindCorrectionDropped); n > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d row(s) dropped; rerun with -v for details\n", n)
	}
	return nil
}
