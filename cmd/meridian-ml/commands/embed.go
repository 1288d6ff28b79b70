package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/meridian-news/meridian-ml/display"
	"github.com/meridian-news/meridian-ml/embeddings"
	"github.com/meridian-news/meridian-ml/errors"
	"github.com/meridian-news/meridian-ml/logger"
)

// EmbedCmd computes embeddings with the configured provider
var EmbedCmd = &cobra.Command{
	Use:   "embed [text...]",
	Short: "Compute embeddings for texts",
	Long: `Compute embeddings with the configured provider (embeddings.provider).

Texts come from arguments, repeated --text flags, or an input file with a
"texts" array.

Examples:
  meridian-ml embed "Markets rally on rate cut" "Storm closes ports"
  meridian-ml embed --input headlines.yaml --json`,
	RunE: runEmbed,
}

var (
	embedTexts []string
	embedInput string
	embedJSON  bool
)

func init() {
	EmbedCmd.Flags().StringArrayVarP(&embedTexts, "text", "t", nil, "Text to embed (repeatable)")
	EmbedCmd.Flags().StringVarP(&embedInput, "input", "i", "", "File with a texts array (.json, .yaml, .yml, .toml, or -)")
	EmbedCmd.Flags().BoolVarP(&embedJSON, "json", "j", false, "Print the full result as JSON")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	texts := append(append([]string{}, args...), embedTexts...)
	if embedInput != "" {
		var in textInput
		if err := readInputFile(embedInput, cmd.InOrStdin(), &in); err != nil {
			return err
		}
		texts = append(texts, in.Texts...)
	}
	if len(texts) == 0 {
		return errors.New("no texts given: pass arguments, --text or --input")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := startEmbeddings(cfg.Embeddings, logger.Logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.Embed(commandContext(cmd), texts)
	if err != nil {
		return errors.Wrap(err, "embedding failed")
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), res)
	}
	return printEmbeddingTable(cmd.OutOrStdout(), texts, res)
}

// printEmbeddingTable shows each text with its norm and leading components
func printEmbeddingTable(w io.Writer, texts []string, res *embeddings.Result) error {
	fmt.Fprintf(w, "%d text(s), model %s, %d dimensions\n", len(texts), res.ModelName, res.Dimensions)

	data := [][]string{{"#", "Text", "Head"}}
	for i, vec := range res.Embeddings {
		data = append(data, []string{strconv.Itoa(i), truncate(texts[i], 40), head(vec, 4)})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func head(vec []float32, n int) string {
	if len(vec) < n {
		n = len(vec)
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = strconv.FormatFloat(float64(vec[i]), 'f', 4, 32)
	}
	out := "[" + strings.Join(parts, ", ")
	if len(vec) > n {
		out += ", ..."
	}
	return out + "]"
}
