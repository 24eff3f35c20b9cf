package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lvlagency/gforms-gtm/internal/fileutils"
	"github.com/spf13/cobra"
)

// readJSON decodes the JSON document at path into v. "-" reads the command input.
func readJSON(cmd *cobra.Command, path string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %v", err)
		}
		defer f.Close()
		r = f
	}

	if err := fileutils.ParseJSON(r, v); err != nil {
		return fmt.Errorf("invalid input: %v", err)
	}
	return nil
}

// writeJSON prints v as indented JSON on the command output.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
