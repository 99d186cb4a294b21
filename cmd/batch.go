package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pagelens/internal/ingest"
	"github.com/sells-group/pagelens/internal/model"
)

var (
	batchInput       string
	batchFields      []string
	batchConcurrency int
	batchOutput      string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Extract attributes from a list of product pages",
	Long:  "Reads URLs from a CSV, XLSX, or plain text file and runs extractions concurrently.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		urls, err := ingest.ReadURLs(batchInput)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return eris.Errorf("no valid urls in %s", batchInput)
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		fields := batchFields
		if len(fields) == 0 {
			for _, spec := range env.Registry.Predefined() {
				fields = append(fields, spec.Name)
			}
		}

		reqs := make([]model.ExtractionRequest, len(urls))
		for i, u := range urls {
			reqs[i] = model.ExtractionRequest{
				URL:              u,
				Fields:           fields,
				PreferDOMText:    true,
				AllowOCRFallback: true,
			}
		}

		concurrency := batchConcurrency
		if concurrency == 0 {
			concurrency = cfg.Batch.MaxConcurrentURLs
		}

		zap.L().Info("batch extraction starting",
			zap.Int("urls", len(urls)),
			zap.Int("concurrency", concurrency),
		)

		results := env.Pipeline.RunAll(ctx, reqs, concurrency)

		out := os.Stdout
		if batchOutput != "" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrapf(err, "create output file %s", batchOutput)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "CSV, XLSX, or text file of URLs (required)")
	batchCmd.Flags().StringSliceVar(&batchFields, "fields", nil, "fields to extract (default: all predefined)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent URLs (default from config)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write results to file instead of stdout")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
