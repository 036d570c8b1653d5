package framework

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// customDefinition is the on-disk shape of a custom framework.
type customDefinition struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	Description       string `yaml:"description"`
	Terms             Terms  `yaml:"terms"`
	AnalysisGuidance  string `yaml:"analysis_guidance"`
	ReconcileGuidance string `yaml:"reconcile_guidance"`
	// ArticlesPath is resolved relative to the definition file.
	ArticlesPath string `yaml:"articles_path"`
}

// LoadCustom reads a custom framework definition from a YAML file. Unknown
// keys are rejected. Missing phrases fall back to the generic phrase set;
// missing required term lists are an error.
func LoadCustom(path string) (Framework, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "framework: read custom definition %s", path)
	}
	return parseCustom(raw, filepath.Dir(path))
}

func parseCustom(raw []byte, baseDir string) (Framework, error) {
	var def customDefinition
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, eris.Wrap(err, "framework: decode custom definition")
	}

	id := normalizeID(def.ID)
	if id == "" {
		return nil, eris.New("framework: custom definition has no id")
	}
	if err := def.Terms.Validate(id); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(def.Name)
	if name == "" {
		name = strings.ToUpper(id)
	}
	guidance := strings.TrimSpace(def.AnalysisGuidance)
	if guidance == "" {
		guidance = "Find statements in the document that describe practices violating " + name + " requirements."
	}

	var articles string
	if def.ArticlesPath != "" {
		p := def.ArticlesPath
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "framework: read articles for %s", id)
		}
		articles = string(b)
	}

	return &definition{
		id:          id,
		name:        name,
		description: strings.TrimSpace(def.Description),
		terms:       def.Terms.withDefaults(),
		articles:    articles,
		guidance:    guidance,
		reconcile:   def.ReconcileGuidance,
	}, nil
}
