package pipe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"slate/internal/template"
)

// jobConfigFile is the per-job configuration path, relative to the job root.
const jobConfigFile = ".slate/config.toml"

// TemplateDef is one template declaration in a job's config file.
type TemplateDef struct {
	Pattern string `toml:"pattern"`
	Profile string `toml:"profile"`
	DCC     string `toml:"dcc"`
	// Type marks output templates with their output type (publish,
	// render, cache, mov). Empty for structural templates.
	Type string `toml:"type"`
	// SeqDir marks directory-level aggregates for frame sequences.
	SeqDir bool `toml:"seq_dir"`
}

// JobConfig is the per-job configuration: path templates plus token
// validator rules. Read once at job load time and immutable thereafter.
type JobConfig struct {
	Name      string                 `toml:"name"`
	Templates map[string]TemplateDef `toml:"templates"`
	Tokens    map[string]string      `toml:"tokens"`
}

// defaultJobConfig supplies the site-standard layout for jobs that carry no
// config file of their own. Version padding in the default patterns follows
// the configured site padding; jobs with their own config file control
// padding through their template specs directly.
func defaultJobConfig(verPadding int) JobConfig {
	if verPadding <= 0 {
		verPadding = 3
	}
	ver := fmt.Sprintf("{ver:0%dd}", verPadding)
	return JobConfig{
		Templates: map[string]TemplateDef{
			"asset_entity": {
				Pattern: "{job_path}/assets/{asset_type}/{asset}",
				Profile: ProfileAsset,
			},
			"shot_entity": {
				Pattern: "{job_path}/shots/{sequence}/{shot}",
				Profile: ProfileShot,
			},
			"sequence_dir": {
				Pattern: "{job_path}/shots/{sequence}",
			},
			"work_dir": {
				Pattern: "{entity_path}/{dcc}/{task}",
			},
			"work": {
				Pattern: "{work_dir}/work/{entity}_{task}_{tag}_v" + ver + ".{extn}",
			},
			"publish": {
				Pattern: "{entity_path}/publish/{task}/{entity}_{task}[_{tag}]_v" + ver + ".{extn}",
				Type:    "publish",
			},
			"cache": {
				Pattern: "{entity_path}/cache/{task}/{entity}_{output_name}[_{tag}]_v" + ver + ".{extn}",
				Type:    "cache",
			},
			"render_dir": {
				Pattern: "{entity_path}/render/{task}/{tag}/{output_name}_v" + ver,
				Type:    "render",
				SeqDir:  true,
			},
			"render": {
				Pattern: "{entity_path}/render/{task}/{tag}/{output_name}_v" + ver + "/{entity}_{output_name}_v" + ver + ".{frame:04d}.{extn}",
				Type:    "render",
			},
			"mov": {
				Pattern: "{entity_path}/mov/{task}/{entity}_{task}[_{tag}]_v" + ver + ".{extn}",
				Type:    "mov",
			},
		},
		Tokens: map[string]string{
			"tag":         `[a-zA-Z0-9]+`,
			"task":        `[a-z][a-zA-Z0-9]*`,
			"output_name": `[a-zA-Z0-9]+`,
		},
	}
}

// readJobConfig loads the job's config file, falling back to the default
// layout when the job has none.
func readJobConfig(jobPath string, verPadding int) (JobConfig, error) {
	cfg := defaultJobConfig(verPadding)

	path := jobPath + "/" + jobConfigFile
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read job config %s: %w", path, err)
	}

	var overrides JobConfig
	if err := toml.Unmarshal(payload, &overrides); err != nil {
		return cfg, fmt.Errorf("parse job config %s: %w", path, err)
	}
	if overrides.Name != "" {
		cfg.Name = overrides.Name
	}
	for name, def := range overrides.Templates {
		cfg.Templates[name] = def
	}
	for token, rule := range overrides.Tokens {
		cfg.Tokens[token] = rule
	}
	return cfg, nil
}

// buildTemplates compiles the config's template set with job_path already
// bound, sorted by name for deterministic resolution order.
func buildTemplates(cfg JobConfig, jobPath string) ([]*template.Template, error) {
	names := make([]string, 0, len(cfg.Templates))
	for name := range cfg.Templates {
		names = append(names, name)
	}
	sort.Strings(names)

	templates := make([]*template.Template, 0, len(names))
	for _, name := range names {
		def := cfg.Templates[name]
		tmpl, err := template.New(name, def.Pattern)
		if err != nil {
			return nil, err
		}
		tmpl.Profile = def.Profile
		tmpl.DCC = def.DCC
		if tmpl.HasKey("job_path") {
			tmpl, err = tmpl.ApplyData(template.Data{"job_path": jobPath})
			if err != nil {
				return nil, err
			}
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
