package openapi

import (
	"bytes"
	"os"

	"apiweaver/internal/apierr"

	"gopkg.in/yaml.v3"
)

const loadStage = "load-spec"

// LoadExistingSpec decodes a YAML (or JSON) OpenAPI document for amending.
// A document without an openapi version gets the current one; missing
// components are initialized.
func LoadExistingSpec(data []byte) (*Spec, error) {
	return loadSpec(data, "")
}

// LoadSpecFile reads and decodes the document at path.
func LoadSpecFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from config
	if err != nil {
		return nil, apierr.Wrapf(apierr.KindGeneration, loadStage, path, err, "read existing spec")
	}
	return loadSpec(data, path)
}

func loadSpec(data []byte, input string) (*Spec, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apierr.New(apierr.KindGeneration, loadStage, input, "existing spec is empty")
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, apierr.Wrapf(apierr.KindGeneration, loadStage, input, err, "decode existing spec")
	}

	if spec.OpenAPI == "" {
		spec.OpenAPI = Version
	}
	if spec.Components.Schemas == nil {
		spec.Components.Schemas = map[string]*Schema{}
	}
	return &spec, nil
}
