package toolutils

import (
	"os"

	"github.com/goccy/go-yaml"
)

// ReadYaml decodes the YAML file at path into out, which must be a pointer.
// Missing files or malformed YAML are fatal: a forwarder cannot run without
// a valid configuration.
func ReadYaml(out any, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		panic(err)
	}
}
