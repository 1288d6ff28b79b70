package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/meridian-news/meridian-ml/errors"
)

// clusterInput is the file accepted by `meridian-ml cluster`
type clusterInput struct {
	Embeddings     [][]float64 `json:"embeddings" yaml:"embeddings" toml:"embeddings"`
	MinClusterSize *int        `json:"min_cluster_size,omitempty" yaml:"min_cluster_size,omitempty" toml:"min_cluster_size,omitempty"`
}

// textInput is the file accepted by `meridian-ml embed --input`
type textInput struct {
	Texts []string `json:"texts" yaml:"texts" toml:"texts"`
}

// readInputFile decodes path into v by extension: .json, .yaml/.yml or
// .toml. A path of "-" reads JSON from stdin.
func readInputFile(path string, stdin io.Reader, v interface{}) error {
	var (
		data []byte
		err  error
		ext  string
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
		ext = ".json"
	} else {
		data, err = os.ReadFile(path)
		ext = strings.ToLower(filepath.Ext(path))
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	switch ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(v)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	case ".toml":
		_, err = toml.Decode(string(data), v)
	default:
		return errors.WithHint(
			errors.Newf("unsupported input format %q", ext),
			"use a .json, .yaml, .yml or .toml file")
	}
	if err != nil {
		return errors.Wrapf(err, "failed to parse %s", path)
	}
	return nil
}
