package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/watercolor-games/redteam/core/console"
	"github.com/watercolor-games/redteam/core/shell"
	"github.com/watercolor-games/redteam/core/vfs"
)

var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the builtin commands of the shell.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		con := console.NewStreamConsole(strings.NewReader(""), io.Discard)
		sh := shell.New(con, vfs.New(afero.NewMemMapFs()), shell.Options{})

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
		for _, builtin := range sh.Builtins().All() {
			fmt.Fprintf(tw, "%s\t%s\n", builtin.Name, builtin.Description)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
