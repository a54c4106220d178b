package main

import (
	"fmt"
	"io"
	"os"

	"github.com/disiqueira/gotree/v3"
	"github.com/dustin/go-humanize"
	"github.com/lewtec/barber/internal/collection"
	"github.com/lewtec/barber/internal/folder"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var collectionTree bool

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Show the sources, their folders and how many images are starred",
	Long: `Show the sources, their folders and how many images are starred.

On a terminal the collection is drawn as a tree; otherwise one tab separated
line is printed per folder: source, path, images, starred, size.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, coll, _, err := setup(cmd)
		if err != nil {
			return err
		}
		defer coll.Close()

		groups, err := coll.Groups(commandContext(cmd))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if collectionTree || isTerminal(out) {
			fmt.Fprint(out, collectionAsTree(groups))
			return nil
		}
		for _, group := range groups {
			for _, f := range group.Folders {
				fmt.Fprintf(out, "%s\t%s\t%d\t%d\t%s\n", group.Name, f.Path(), f.Len(), len(f.Starred()), humanize.Bytes(folderSize(f)))
			}
		}
		return nil
	},
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func collectionAsTree(groups []collection.Group) string {
	tree := gotree.New("collection")
	for _, group := range groups {
		node := tree.Add(group.Name)
		for _, f := range group.Folders {
			node.Add(fmt.Sprintf("%s (%d images, %d starred, %s)", f.Path(), f.Len(), len(f.Starred()), humanize.Bytes(folderSize(f))))
		}
	}
	return tree.Print()
}

// folderSize sums the sizes of the indexed images, skipping vanished files
func folderSize(f *folder.Folder) uint64 {
	var total uint64
	for _, img := range f.Images() {
		if info, err := os.Stat(img.Path()); err == nil {
			total += uint64(info.Size())
		}
	}
	return total
}

func init() {
	collectionCmd.Flags().BoolVarP(&collectionTree, "tree", "t", false, "Draw a tree even when not on a terminal")
	rootCmd.AddCommand(collectionCmd)
}
