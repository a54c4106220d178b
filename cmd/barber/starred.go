package main

import (
	"fmt"

	"github.com/lewtec/barber/internal/folder"
	"github.com/spf13/cobra"
)

var starredShowDigests bool

// starredCmd lists starred images of folders given on the command line,
// whether or not the configuration knows them
var starredCmd = &cobra.Command{
	Use:   "starred folder [folder...]",
	Short: "List the starred images of folders",
	Long: `List the starred images of folders, one path per line.

Example:
  barber starred ~/photos/2023 | xargs -I{} cp {} /tmp/best
  barber starred -i ~/photos/2023`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd.ErrOrStderr())
		ctx := commandContext(cmd)
		out := cmd.OutOrStdout()
		for _, dir := range args {
			f, err := folder.Build(ctx, dir, folder.Options{Logger: logger})
			if err != nil {
				return err
			}
			for _, img := range f.Starred() {
				if starredShowDigests {
					fmt.Fprintf(out, "%s\t%s\n", img.Digest(), img.Path())
				} else {
					fmt.Fprintln(out, img.Path())
				}
			}
			if err := f.Close(); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	starredCmd.Flags().BoolVarP(&starredShowDigests, "show-digests", "i", false, "Show the identity of each image next to its path")
	rootCmd.AddCommand(starredCmd)
}
