package main

import (
	"fmt"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/lewtec/barber/internal/collection"
	"github.com/lewtec/barber/internal/folder"
	"github.com/lewtec/barber/internal/remote"
	"github.com/lewtec/barber/internal/upload"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [patterns...]",
	Short: "Upload the starred images of the matching sources",
	Long: `Upload resized copies of every starred image to the configured destination.

Patterns are shell patterns matched against source names; without patterns
every source is uploaded.

Example:
  barber upload 'trips*' family`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, coll, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer coll.Close()
		if err := cfg.Destination.CheckUpload(); err != nil {
			return err
		}
		ctx := commandContext(cmd)

		groups, err := coll.Groups(ctx)
		if err != nil {
			return err
		}
		folders, err := selectFolders(groups, args)
		if err != nil {
			return err
		}

		client, err := remote.Dial(cfg.Destination.HostAlias, remote.DefaultConfigPath(), remote.Options{Logger: logger})
		if err != nil {
			return fmt.Errorf("failed to connect to '%s': %w", cfg.Destination.HostAlias, err)
		}
		syncer := &upload.Syncer{
			Lister: client,
			Sender: client,
			Sizes:  cfg.Destination.Sizes,
			Root:   cfg.Destination.Root,
			Policy: cfg.Destination.Policy(),
			Logger: logger,
		}
		reports, err := syncer.SyncAll(ctx, folders)
		for _, r := range reports {
			if r == nil {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d sent\t%d skipped\t%s\n", r.Folder, r.Sent, r.Skipped, humanize.Bytes(r.Bytes))
		}
		return err
	},
}

// selectFolders keeps the folders of sources matching any pattern, all of them without patterns
func selectFolders(groups []collection.Group, patterns []string) ([]*folder.Folder, error) {
	var folders []*folder.Folder
	for _, group := range groups {
		ok := len(patterns) == 0
		for _, pattern := range patterns {
			matched, err := path.Match(pattern, group.Name)
			if err != nil {
				return nil, fmt.Errorf("bad pattern '%s': %w", pattern, err)
			}
			if matched {
				ok = true
				break
			}
		}
		if ok {
			folders = append(folders, group.Folders...)
		}
	}
	return folders, nil
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
