package commands

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/xbrlus/xbrlapi/internal/constants"
)

// versionInfo describes the build.
type versionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit"  yaml:"commit"`
	Built   string `json:"built"   yaml:"built"`
}

func newVersionCommand(state *rootState, version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := state.output()
			if err != nil {
				return err
			}

			info := versionInfo{Version: version, Commit: commit, Built: date}
			out := cmd.OutOrStdout()

			switch format {
			case constants.FormatJSON:
				return writeJSON(out, info)
			case constants.FormatYAML:
				return writeYAML(out, info)
			default:
				table := tablewriter.NewWriter(out)
				table.Header("Property", "Value")
				_ = table.Append("Version", info.Version)
				_ = table.Append("Commit", info.Commit)
				_ = table.Append("Built", info.Built)

				err := table.Render()
				if err != nil {
					return fmt.Errorf("failed to render table: %w", err)
				}
			}

			return nil
		},
	}
}
