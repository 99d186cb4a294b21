package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/pagelens/internal/model"
)

var (
	runURL    string
	runFields []string
	runNoDOM  bool
	runNoOCR  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract attributes from a single product page",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		fields := runFields
		if len(fields) == 0 {
			for _, spec := range env.Registry.Predefined() {
				fields = append(fields, spec.Name)
			}
		}

		result := env.Pipeline.Run(ctx, model.ExtractionRequest{
			URL:              runURL,
			Fields:           fields,
			PreferDOMText:    !runNoDOM,
			AllowOCRFallback: !runNoOCR,
		})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", "", "product page URL (required)")
	runCmd.Flags().StringSliceVar(&runFields, "fields", nil, "fields to extract (default: all predefined)")
	runCmd.Flags().BoolVar(&runNoDOM, "no-dom", false, "skip DOM text acquisition")
	runCmd.Flags().BoolVar(&runNoOCR, "no-ocr", false, "skip OCR fallback")
	_ = runCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(runCmd)
}
