package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	easydk "github.com/cambricon/easydk-go"
)

var unloadKey string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Load, list, and evict model manifests in the local cache",
}

var modelsLoadCmd = &cobra.Command{
	Use:   "load <manifest-path>...",
	Short: "Load one or more model manifests into a cache sized by the config's cache_limit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		loader := easydk.NewModelCache(easydk.FileFetch, cfg.Models.CacheLimit)
		return loadAndPrint(loader, args)
	},
}

var modelsLsCmd = &cobra.Command{
	Use:   "ls <manifest-path>...",
	Short: "Load the given manifests, then list the resulting cache contents (most recent first)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		loader := easydk.NewModelCache(easydk.FileFetch, cfg.Models.CacheLimit)
		if err := loadQuietly(loader, args); err != nil {
			return err
		}
		printCache(loader)
		return nil
	},
}

var modelsRmCmd = &cobra.Command{
	Use:   "rm <manifest-path>... --key <content-key>",
	Short: "Load the given manifests, evict one by content key, then list what remains",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if unloadKey == "" {
			return fmt.Errorf("--key is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		loader := easydk.NewModelCache(easydk.FileFetch, cfg.Models.CacheLimit)
		if err := loadQuietly(loader, args); err != nil {
			return err
		}
		loader.UnloadModel(unloadKey)
		printCache(loader)
		return nil
	},
}

func init() {
	modelsRmCmd.Flags().StringVar(&unloadKey, "key", "", "content-addressed key to evict")
	modelsCmd.AddCommand(modelsLoadCmd, modelsLsCmd, modelsRmCmd)
}

func loadQuietly(loader *easydk.ModelCache, paths []string) error {
	for _, path := range paths {
		if _, err := loader.LoadModel(context.Background(), path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func loadAndPrint(loader *easydk.ModelCache, paths []string) error {
	for _, path := range paths {
		info, err := loader.LoadModel(context.Background(), path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		fmt.Printf("%s  key=%s  inputs=%d outputs=%d\n", path, info.Key, info.InputCount(), info.OutputCount())
	}
	printCache(loader)
	return nil
}

func printCache(loader *easydk.ModelCache) {
	infos := loader.List()
	fmt.Printf("%s in cache\n", humanize.Comma(int64(len(infos))))
	for _, info := range infos {
		fmt.Printf("  %s  %s\n", info.Key, info.URL)
	}
}
