package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// IssueTriage is the prompt used by the AI triage pipeline.
const IssueTriage = "issue_triage"

type document struct {
	Prompts []entry `yaml:"prompts"`
}

type entry struct {
	Name    string `yaml:"name"`
	Version int    `yaml:"version"`
	System  string `yaml:"system"`
	User    string `yaml:"user"`
}

type compiled struct {
	version int
	system  *template.Template
	user    *template.Template
}

// Registry holds the highest version of each named prompt.
type Registry struct {
	prompts map[string]compiled
}

var funcs = template.FuncMap{
	"join": strings.Join,
}

// Default returns the registry built from the embedded prompts.
func Default() (*Registry, error) {
	return Parse(defaultPrompts)
}

// Load reads prompts from path, or the embedded defaults when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts file: %w", err)
	}
	return Parse(data)
}

// Parse compiles a YAML prompt document.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing prompts yaml: %w", err)
	}

	r := &Registry{prompts: make(map[string]compiled)}
	for _, e := range doc.Prompts {
		if e.Name == "" {
			return nil, fmt.Errorf("prompt without name")
		}
		if existing, ok := r.prompts[e.Name]; ok && existing.version >= e.Version {
			continue
		}

		system, err := template.New(e.Name + ".system").Funcs(funcs).Option("missingkey=error").Parse(e.System)
		if err != nil {
			return nil, fmt.Errorf("prompt %s v%d system: %w", e.Name, e.Version, err)
		}
		user, err := template.New(e.Name + ".user").Funcs(funcs).Option("missingkey=error").Parse(e.User)
		if err != nil {
			return nil, fmt.Errorf("prompt %s v%d user: %w", e.Name, e.Version, err)
		}
		r.prompts[e.Name] = compiled{version: e.Version, system: system, user: user}
	}

	return r, nil
}

// Render executes both templates of the named prompt with data.
func (r *Registry) Render(name string, data any) (system string, user string, err error) {
	p, ok := r.prompts[name]
	if !ok {
		return "", "", fmt.Errorf("unknown prompt %q", name)
	}

	var sb, ub strings.Builder
	if err := p.system.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("rendering %s system prompt: %w", name, err)
	}
	if err := p.user.Execute(&ub, data); err != nil {
		return "", "", fmt.Errorf("rendering %s user prompt: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), strings.TrimSpace(ub.String()), nil
}

// Version reports the loaded version of the named prompt (0 when absent).
func (r *Registry) Version(name string) int {
	return r.prompts[name].version
}
