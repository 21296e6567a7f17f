package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/griffgriff5000/Spotlight-on-Outlook/config"
	"github.com/griffgriff5000/Spotlight-on-Outlook/store"
	"github.com/griffgriff5000/Spotlight-on-Outlook/traverse"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List the stores and folder paths the configured backend exposes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cmd)
		if err != nil {
			return err
		}

		logger, cleanup, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = cleanup()
		}()

		ctx := cmd.Context()
		backend := buildStore(cfg, logger)
		session, err := backend.Connect(ctx, cfg.RequireRunning)
		if err != nil {
			return fmt.Errorf("connect %s store: %w", cfg.Backend, err)
		}
		defer func() {
			_ = session.Close()
		}()

		storeNames, err := session.StoreNames(ctx)
		if err != nil {
			return fmt.Errorf("list stores: %w", err)
		}

		// Paths are printed relative to the store root, the exact form the
		// --folder flag takes.
		for _, storeName := range storeNames {
			fmt.Println(storeName)
			root, err := session.ResolveFolder(ctx, storeName, "")
			if err != nil {
				return fmt.Errorf("resolve root of %s: %w", storeName, err)
			}
			children, err := root.Children(ctx)
			if err != nil {
				return fmt.Errorf("list folders of %s: %w", storeName, err)
			}
			for _, child := range children {
				err := traverse.Walk(ctx, child, child.Name(), true, logger, func(_ store.Folder, path string) error {
					fmt.Printf("  %s\n", path)
					return nil
				})
				if err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func init() {
	config.RegisterFlags(foldersCmd)
	rootCmd.AddCommand(foldersCmd)
}
