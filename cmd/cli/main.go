package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/adapters/excel"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/app"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/config"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/model"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/report"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/internal/testkit"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "meta-cli",
		Short: "Pool study effects under a random-effects model with influence diagnostics",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newDemoCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var failFast bool

	cmd := &cobra.Command{
		Use:   "analyze [study-file]",
		Short: "Run the full pipeline over a study table (.xlsx or .csv)",
		Long: `Harmonize the studies in the table onto the Hedges' g scale, fit a
random-effects model (REML + Knapp-Hartung) and print the summary report.

Example: meta-cli analyze studies.xlsx --fail-fast`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			path := cfg.Paths.StudyFile
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no study file given (argument or STUDY_FILE)")
			}

			studies, err := excel.NewStudyReader(path).ReadStudies(cmd.Context())
			if err != nil {
				return err
			}

			policy := app.SkipInvalid
			if failFast {
				policy = app.FailFast
			}

			result, err := app.NewAnalysisService().Run(cmd.Context(), app.AnalysisRequest{
				Studies: studies,
				Policy:  policy,
				FitOpts: model.FitOptions{Tolerance: cfg.Fit.Tolerance, MaxIter: cfg.Fit.MaxIter},
			})
			if err != nil {
				return err
			}

			fmt.Print(report.Markdown(result))
			return nil
		},
	}

	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "abort on the first invalid study instead of excluding it")
	return cmd
}

func newDemoCmd() *cobra.Command {
	var seed int64
	var studies int

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Generate a seeded synthetic study set and analyze it",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := testkit.NewStudyGenerator(testkit.GeneratorConfig{
				StudyCount:  studies,
				TrueEffect:  0.4,
				Tau:         0.15,
				MinGroupN:   20,
				MaxGroupN:   120,
				ORStudyRate: 0.25,
				Seed:        seed,
			})

			records, err := gen.Generate()
			if err != nil {
				return err
			}

			summary := testkit.Summarize(records)
			fmt.Printf("Generated %d studies (n: mean %.0f, range %.0f-%.0f)\n\n",
				summary.StudyCount, summary.MeanN, summary.MinN, summary.MaxN)

			result, err := app.NewAnalysisService().Run(cmd.Context(), app.AnalysisRequest{
				Studies: records,
			})
			if err != nil {
				return err
			}

			fmt.Print(report.Markdown(result))
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "generator seed")
	cmd.Flags().IntVar(&studies, "studies", 8, "number of synthetic studies")
	return cmd
}
