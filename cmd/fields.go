package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/pagelens/internal/registry"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the predefined extraction fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.New()
		if cfg.Registry.FieldsFile != "" {
			if err := reg.LoadExtensions(cfg.Registry.FieldsFile); err != nil {
				return err
			}
		}

		for _, spec := range reg.Predefined() {
			fmt.Printf("%-15s %-8s %s\n", spec.Name, spec.Type, spec.Description)
			if spec.Example != "" {
				fmt.Printf("%-15s %-8s example: %s\n", "", "", spec.Example)
			}
		}
		fmt.Println(strings.Repeat("-", 60))
		fmt.Println("Any other field name is accepted and treated as a custom attribute.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
