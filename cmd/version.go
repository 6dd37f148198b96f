package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leekd123/nutify/internal/version"
)

// CreateVersionCmd creates the version command.
func CreateVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(_ *cobra.Command, _ []string) {
			info := version.Get()
			if asJSON {
				out, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					fmt.Fprintf(os.Stderr, "nutify: %v\n", err)
					os.Exit(1)
				}
				fmt.Println(string(out))
				return
			}
			fmt.Printf("nutify %s\n", info.Version)
			fmt.Printf("  commit:   %s\n", info.GitCommit)
			fmt.Printf("  built:    %s\n", info.BuildDate)
			fmt.Printf("  go:       %s (%s)\n", info.GoVersion, info.Platform)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print machine-readable JSON")

	return cmd
}
