// Command mksdimg builds and inspects SD card images for the simulator.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"firmsim/peripheral/sdcard"
)

var (
	outPath string
	minSize uint32

	rootCmd = &cobra.Command{
		Use:          "mksdimg",
		Short:        "Build and inspect simulator SD card images",
		SilenceUsage: true,
	}

	buildCmd = &cobra.Command{
		Use:   "build [flags] FILE...",
		Short: "Create an image holding FILEs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := build(outPath, args, minSize)
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries)
		},
	}

	listCmd = &cobra.Command{
		Use:   "list IMAGE",
		Short: "Print the directory of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := list(args[0])
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries)
		},
	}
)

func init() {
	buildCmd.Flags().StringVarP(&outPath, "output", "o", "sd.img", "output image path")
	buildCmd.Flags().Uint32VarP(&minSize, "blocks", "b", 2048, "minimum image size in 512-byte blocks")
	rootCmd.AddCommand(buildCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// build writes an image with a block 0 directory followed by each file
// in consecutive blocks.
func build(out string, files []string, minBlocks uint32) ([]sdcard.Entry, error) {
	if len(files) > sdcard.MaxEntries {
		return nil, fmt.Errorf("%d files, at most %d fit", len(files), sdcard.MaxEntries)
	}
	entries := make([]sdcard.Entry, 0, len(files))
	seen := make(map[string]bool)
	next := uint32(1)
	for _, path := range files {
		st, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", path, err)
		}
		if !st.Mode().IsRegular() {
			return nil, fmt.Errorf("%q is not a regular file", path)
		}
		if st.Size() > int64(^uint32(0)) {
			return nil, fmt.Errorf("%q is too large", path)
		}
		name := filepath.Base(path)
		if len(name) > sdcard.MaxNameLen {
			return nil, fmt.Errorf("name %q is longer than %d bytes", name, sdcard.MaxNameLen)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate name %q", name)
		}
		seen[name] = true
		e := sdcard.Entry{Name: name, Block: next, Size: uint32(st.Size())}
		next += e.Blocks()
		entries = append(entries, e)
	}

	dir, err := sdcard.MarshalDirectory(entries)
	if err != nil {
		return nil, err
	}
	img, err := sdcard.CreateImage(out, max(next, minBlocks))
	if err != nil {
		return nil, err
	}
	defer func() { _ = img.Close() }()

	if err := img.WriteBlock(0, dir); err != nil {
		return nil, err
	}
	for i, e := range entries {
		if err := copyFile(img, files[i], e); err != nil {
			return nil, err
		}
	}
	return entries, img.Close()
}

func copyFile(img *sdcard.Image, path string, e sdcard.Entry) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer func() { _ = in.Close() }()

	buf := make([]byte, sdcard.BlockSize)
	for lba := e.Block; lba < e.Block+e.Blocks(); lba++ {
		clear(buf)
		if _, err := io.ReadFull(in, buf); err != nil && err != io.ErrUnexpectedEOF {
			return fmt.Errorf("read %q: %w", path, err)
		}
		if err := img.WriteBlock(lba, buf); err != nil {
			return err
		}
	}
	return nil
}

func list(path string) ([]sdcard.Entry, error) {
	img, err := sdcard.OpenImage(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = img.Close() }()
	block := make([]byte, sdcard.BlockSize)
	if err := img.ReadBlock(0, block); err != nil {
		return nil, err
	}
	return sdcard.ParseDirectory(block)
}

func printEntries(w io.Writer, entries []sdcard.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tBLOCK\tSIZE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", e.Name, e.Block, e.Size)
	}
	return tw.Flush()
}
