/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/ssargent/logbuf/pkg/config"
	"github.com/ssargent/logbuf/pkg/di"
	"github.com/ssargent/logbuf/pkg/source"
	"github.com/ssargent/logbuf/pkg/store"
	"go.uber.org/zap"
)

// errCorrupt is returned when a capture could not be fully decoded
var errCorrupt = errors.New("corrupt logbuf")

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode [capture]",
	Short: "Decode a capture and print its records",
	Long: `Decode a captured kernel log buffer and print every record in stream order.
The capture may be gzip, zstd, lz4 or framed snappy compressed and is detected
by its magic number; brotli captures need --compression brotli. Reads stdin
when no capture is given or the capture is "-".

Decoding stops at the first damaged record. Records before it are still
printed and the command fails unless --allow-corrupt is set.

Examples:
  logbuf decode /var/crash/dmesg.bin
  logbuf decode --byte-order big --format dmesg-x capture.bin.zst
  cat capture.bin | logbuf decode --format json`,
	Args: cobra.MaximumNArgs(1),
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

		result, err := decodeCapture(container, path, startOffset, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return reportPass(cmd.ErrOrStderr(), container.Logger(), path, result, cfg.Output.AllowCorrupt)
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	addDecodeFlags(decodeCmd)
	decodeCmd.Flags().String("format", "", "Output format: text, dmesg, dmesg-x, json or cbor")
}

// addDecodeFlags registers the flags shared by every command that decodes a capture
func addDecodeFlags(cmd *cobra.Command) {
	cmd.Flags().String("byte-order", "", "Byte order of the capture: little or big")
	cmd.Flags().Int("max-record-size", 0, "Largest record_len accepted, 0 for no limit")
	cmd.Flags().Int("capacity", 0, "Maximum number of records kept, 0 for no limit")
	cmd.Flags().String("compression", "", "Capture compression: auto, none, gzip, zstd, lz4, snappy or brotli")
	cmd.Flags().Int64("start-offset", 0, "Offset of the first record in the capture")
	cmd.Flags().Bool("allow-corrupt", false, "Succeed even when the capture is damaged")
}

// applyDecodeFlags overrides cfg with the decode flags that were set
func applyDecodeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("byte-order") {
		cfg.Decoder.ByteOrder, _ = flags.GetString("byte-order")
	}
	if flags.Changed("max-record-size") {
		cfg.Decoder.MaxRecordSize, _ = flags.GetInt("max-record-size")
	}
	if flags.Changed("compression") {
		cfg.Decoder.Compression, _ = flags.GetString("compression")
	}
	if flags.Changed("capacity") {
		cfg.Store.Capacity, _ = flags.GetInt("capacity")
	}
	if flags.Lookup("format") != nil && flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("allow-corrupt") {
		cfg.Output.AllowCorrupt, _ = flags.GetBool("allow-corrupt")
	}
	return cfg.Validate()
}

// decodeCapture decodes the capture at path into a record store and writes
// the stored records to w in the configured format
func decodeCapture(c *di.Container, path string, startOffset int64, w io.Writer) (store.PassResult, error) {
	records, result, err := loadCapture(c, path, startOffset)
	if err != nil {
		return result, err
	}

	out, err := c.NewSink(w)
	if err != nil {
		return result, err
	}
	for rec := range records.All() {
		if err := out.Write(rec); err != nil {
			return result, fmt.Errorf("failed to write record: %w", err)
		}
	}
	return result, out.Flush()
}

// loadCapture runs one decoding pass over the capture at path
func loadCapture(c *di.Container, path string, startOffset int64) (*store.RecordStore, store.PassResult, error) {
	reader, err := c.OpenReader(path, startOffset)
	if err != nil {
		return nil, store.PassResult{}, fmt.Errorf("failed to open capture: %w", err)
	}
	defer reader.Close()

	records := c.NewRecordStore()
	result := store.Drain(reader, records)
	c.DecoderMetrics().SetStoredRecords(records.Len())
	return records, result, nil
}

// reportPass logs the pass and reports a damaged capture on stderr
func reportPass(stderr io.Writer, logger *zap.Logger, path string, result store.PassResult, allowCorrupt bool) error {
	fields := []zap.Field{
		zap.Stringer("pass", result.ID),
		zap.String("source", path),
		zap.Int("records", result.Records),
		zap.Int64("bytes", result.Bytes),
		zap.Stringer("outcome", result.Outcome),
	}

	switch {
	case result.Corrupt():
		logger.Warn("capture decoded with errors", append(fields, zap.Error(result.Err))...)
		fmt.Fprintln(stderr, "Corrupt logbuf, output may be incorrect")
		fmt.Fprintf(stderr, "%s: %v\n", result.Outcome, result.Err)
		if !allowCorrupt {
			return fmt.Errorf("%w: %s after %d records", errCorrupt, result.Outcome, result.Records)
		}
	case result.Full():
		logger.Warn("record store full", fields...)
		fmt.Fprintf(stderr, "Record store full, kept the first %d records\n", result.Records)
	case result.Err != nil:
		logger.Error("decoding stopped", append(fields, zap.Error(result.Err))...)
		return result.Err
	default:
		logger.Info("capture decoded", fields...)
	}
	return nil
}
