package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/garage"
)

// Describe renders an error returned by the command tree for the terminal.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if api.IsCanceled(err) {
		return "canceled"
	}
	if msg := garage.UserMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

// readInput decodes a JSON payload from path, or from stdin when path is "-".
func readInput(cmd *cobra.Command, path string, v any) error {
	if path == "" {
		return errors.New("a JSON payload is required (--file path, or - for stdin)")
	}
	var r io.Reader
	name := path
	if path == "-" {
		r, name = cmd.InOrStdin(), "stdin"
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func addFileFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "file", "f", "", "JSON payload file, - for stdin")
}
