package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Mements/serve/cli/internal/output"
	srvconfig "github.com/Mements/serve/pkg/config"
	"github.com/Mements/serve/pkg/importmap"
)

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "Print the resolved import map",
	Long:  "Resolves the declared package descriptors to delivery URLs, exactly as pages will receive them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := srvconfig.LoadFile(serviceName, cfg.DeclPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		dev, _ := cmd.Flags().GetBool("dev")
		resolver := importmap.Resolver{BaseURL: conf.ImportBase}
		resolved := resolver.Resolve(conf.Imports, dev)

		if cfg.Format == "json" || cfg.Format == "yaml" {
			w := output.NewWriter(cfg.Format)
			return w.Print(resolved)
		}

		names := make([]string, 0, len(resolved))
		for name := range resolved {
			names = append(names, name)
		}
		sort.Strings(names)

		table := output.Table{
			Headers: []string{"SPECIFIER", "URL"},
			Rows:    make([][]string, len(names)),
		}
		for i, name := range names {
			table.Rows[i] = []string{name, resolved[name]}
		}

		w := output.NewWriter("table")
		return w.Print(table)
	},
}

func init() {
	importsCmd.Flags().Bool("dev", false, "Resolve with development builds")
}
