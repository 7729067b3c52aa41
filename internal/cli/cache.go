package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/matzehuels/libresolve/pkg/config"
	"github.com/matzehuels/libresolve/pkg/repository"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local artifact cache",
	}

	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheListCommand())
	cmd.AddCommand(c.cacheClearCommand())

	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.cfg.CacheDir)
			return nil
		},
	}
}

// cacheListCommand creates the "cache ls" subcommand.
func (c *CLI) cacheListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List cached artifacts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			local, err := repository.NewLocal(c.cfg.CacheDir)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			entries, err := local.List()
			if err != nil {
				return fmt.Errorf("list cache: %w", err)
			}
			if len(entries) == 0 {
				printInfo("Cache is empty")
				return nil
			}
			return writeEntries(cmd.OutOrStdout(), entries)
		},
	}
}

func writeEntries(w io.Writer, entries []repository.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	var total int64
	for _, e := range entries {
		total += e.Size
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Coordinate, e.Size, e.ModTime.Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printDetail("%d files, %d bytes", len(entries), total)
	return nil
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var descriptors bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := c.cfg.CacheDir
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}
			local, err := repository.NewLocal(dir)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			entries, err := local.List()
			if err != nil {
				return fmt.Errorf("list cache: %w", err)
			}
			if err := local.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			printSuccess("Cleared %d cached artifacts", len(entries))
			printDetail("Directory: %s", dir)

			if descriptors && c.cfg.DescriptorCache.Backend == config.BackendFile {
				n := clearDir(c.cfg.DescriptorCache.Dir)
				printSuccess("Cleared %d cached descriptors", n)
				printDetail("Directory: %s", c.cfg.DescriptorCache.Dir)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&descriptors, "descriptors", false, "also clear the file descriptor cache")
	return cmd
}

// clearDir removes every file below dir and then the emptied
// subdirectories. It returns the number of files removed.
func clearDir(dir string) int {
	count := 0
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if path == dir {
			return nil
		}
		if !info.IsDir() {
			if err := os.Remove(path); err == nil {
				count++
			}
		}
		return nil
	})

	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || path == dir {
			return nil
		}
		if info.IsDir() {
			os.Remove(path)
		}
		return nil
	})
	return count
}
