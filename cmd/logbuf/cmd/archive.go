/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/ryanuber/columnize"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"github.com/ssargent/logbuf/pkg/di"
	"github.com/ssargent/logbuf/pkg/source"
	"github.com/ssargent/logbuf/pkg/store"
)

// archiveCmd groups the archive subcommands
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Store decoded captures in the local archive",
	Long: `Decode captures into a local pebble archive so they can be listed and
printed later without the original file. Each decoding pass gets its own ID.`,
}

var archiveWriteCmd = &cobra.Command{
	Use:   "write [capture]",
	Short: "Decode a capture into the archive",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := source.Stdin
		if len(args) == 1 {
			path = args[0]
		}

		cfg := container.Config()
		if err := applyDecodeFlags(cmd, cfg); err != nil {
			return err
		}
		startOffset, _ := cmd.Flags().GetInt64("start-offset")

		result, err := archiveCapture(container, path, startOffset)
		if err != nil {
			return err
		}
		cmd.Printf("Archived pass %s: %d records from %s\n", result.ID, result.Records, path)
		return reportPass(cmd.ErrOrStderr(), container.Logger(), path, result, cfg.Output.AllowCorrupt)
	},
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived passes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listPasses(container, cmd.OutOrStdout())
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <pass-id>",
	Short: "Print the records of an archived pass",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("format") {
			container.Config().Output.Format, _ = cmd.Flags().GetString("format")
			if err := container.Config().Validate(); err != nil {
				return err
			}
		}
		return showPass(container, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveWriteCmd, archiveListCmd, archiveShowCmd)

	archiveCmd.PersistentFlags().String("archive-dir", "", "Archive directory (overrides config)")
	addDecodeFlags(archiveWriteCmd)
	archiveShowCmd.Flags().String("format", "", "Output format: text, dmesg, dmesg-x, json or cbor")

	archiveCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		if cmd.Flags().Changed("archive-dir") {
			container.Config().Archive.Dir, _ = cmd.Flags().GetString("archive-dir")
		}
		return nil
	}
}

// archiveCapture decodes the capture at path straight into a new archive pass
func archiveCapture(c *di.Container, path string, startOffset int64) (store.PassResult, error) {
	archive, err := c.OpenArchive()
	if err != nil {
		return store.PassResult{}, err
	}
	defer archive.Close()

	reader, err := c.OpenReader(path, startOffset)
	if err != nil {
		return store.PassResult{}, fmt.Errorf("failed to open capture: %w", err)
	}
	defer reader.Close()

	pass := archive.NewPass(ksuid.New(), path)
	result := store.DrainPass(pass.ID(), reader, pass)
	if err := pass.Finish(result); err != nil {
		return result, fmt.Errorf("failed to archive pass %s: %w", pass.ID(), err)
	}
	return result, nil
}

// listPasses writes a table of archived passes to w
func listPasses(c *di.Container, w io.Writer) error {
	archive, err := c.OpenArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	passes, err := archive.Passes()
	if err != nil {
		return err
	}

	lines := []string{"ID|CREATED|RECORDS|BYTES|OUTCOME|SOURCE"}
	for _, p := range passes {
		lines = append(lines, fmt.Sprintf("%s|%s|%d|%d|%s|%s",
			p.ID, p.CreatedAt.Format(time.RFC3339), p.Records, p.Bytes, p.Outcome, p.Source))
	}
	_, err = fmt.Fprintln(w, columnize.SimpleFormat(lines))
	return err
}

// showPass replays an archived pass through the configured sink
func showPass(c *di.Container, passID string, w io.Writer) error {
	id, err := ksuid.Parse(passID)
	if err != nil {
		return fmt.Errorf("invalid pass ID %q: %w", passID, err)
	}

	archive, err := c.OpenArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	out, err := c.NewSink(w)
	if err != nil {
		return err
	}
	if err := archive.Replay(id, store.PushFunc(out.Write)); err != nil {
		return err
	}
	return out.Flush()
}
