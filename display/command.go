// Package display decides between human and machine output for CLI
// commands and renders the machine form.
package display

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meridian-news/meridian-ml/errors"
)

// OutputEnv forces JSON output for every command when set to "json",
// for scripts in the news pipeline that shell out to the CLI.
const OutputEnv = "MERIDIAN_ML_OUTPUT"

// ShouldOutputJSON determines if a command should output JSON based on its
// --json flag and the OutputEnv override
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd != nil && cmd.Flags().Lookup("json") != nil {
		if cmd.Flags().Changed("json") {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			return jsonFlag
		}
		if jsonFlag, _ := cmd.Flags().GetBool("json"); jsonFlag {
			return true
		}
	}
	return strings.EqualFold(os.Getenv(OutputEnv), "json")
}

// OutputJSON writes v to w using MarshalJSON
func OutputJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
