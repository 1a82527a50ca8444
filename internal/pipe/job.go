package pipe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"slate/internal/config"
	"slate/internal/settings"
	"slate/internal/template"
)

// Job is the root of a production: a directory under the jobs root owning a
// config (templates, token validators) and, transitively, every entity
// discovered beneath it. The config is read once at load time.
type Job struct {
	Name string
	Path string

	cfg        *config.Config
	jobCfg     JobConfig
	templates  []*template.Template
	validators template.Validators
	settings   *settings.Level
}

// LoadJob builds a Job from its root directory, reading per-job config and
// compiling its template set with job_path pre-bound.
func LoadJob(cfg *config.Config, jobPath string) (*Job, error) {
	jobPath = NormPath(jobPath)
	name := path.Base(jobPath)
	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("job: invalid path %q", jobPath)
	}

	jobCfg, err := readJobConfig(jobPath, cfg.Pipeline.VerPadding)
	if err != nil {
		return nil, err
	}
	if jobCfg.Name == "" {
		jobCfg.Name = name
	}

	templates, err := buildTemplates(jobCfg, jobPath)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", name, err)
	}
	validators, err := template.CompileValidators(jobCfg.Tokens)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", name, err)
	}

	level := settings.NewLevel(filepath.FromSlash(jobPath), nil, nil)
	level.SetDefaults(defaultSettings())

	return &Job{
		Name:       name,
		Path:       jobPath,
		cfg:        cfg,
		jobCfg:     jobCfg,
		templates:  templates,
		validators: validators,
		settings:   level,
	}, nil
}

// FindJobs discovers jobs under the configured jobs root, applying the
// configured name filter.
func FindJobs(cfg *config.Config) ([]*Job, error) {
	names, err := ReadJobNames(cfg)
	if err != nil {
		return nil, err
	}
	jobs := make([]*Job, 0, len(names))
	for _, name := range names {
		job, err := LoadJob(cfg, path.Join(NormPath(cfg.Paths.JobsRoot), name))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// ReadJobNames lists job directory names under the jobs root, filtered and
// sorted. Split out from FindJobs so the cache layer can disk-cache the
// listing keyed on the root's mtime.
func ReadJobNames(cfg *config.Config) ([]string, error) {
	entries, err := os.ReadDir(cfg.Paths.JobsRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list jobs root: %w", err)
	}
	filter := strings.TrimSpace(cfg.Pipeline.JobsFilter)
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if filter != "" {
			matched, err := path.Match(filter, entry.Name())
			if err != nil {
				return nil, fmt.Errorf("jobs filter %q: %w", filter, err)
			}
			if !matched {
				continue
			}
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// JobRootFromPath returns the job directory owning an arbitrary path under
// the jobs root, without loading the job. The path is remapped through the
// configured path map first so foreign-platform roots resolve too.
func JobRootFromPath(cfg *config.Config, p string) (string, error) {
	root := NormPath(cfg.Paths.JobsRoot)
	normalized := NormPath(cfg.MapPath(p))
	if !strings.HasPrefix(normalized+"/", root+"/") {
		return "", fmt.Errorf("%w: %q is outside jobs root %q", ErrNoMatch, p, root)
	}
	rel := strings.TrimPrefix(normalized, root)
	rel = strings.TrimPrefix(rel, "/")
	name, _, _ := strings.Cut(rel, "/")
	if name == "" {
		return "", fmt.Errorf("%w: %q is the jobs root itself", ErrNoMatch, p)
	}
	return path.Join(root, name), nil
}

// JobFromPath resolves the job owning an arbitrary path under the jobs
// root.
func JobFromPath(cfg *config.Config, p string) (*Job, error) {
	jobPath, err := JobRootFromPath(cfg, p)
	if err != nil {
		return nil, err
	}
	return LoadJob(cfg, jobPath)
}

// Config returns the global tool configuration the job was loaded with.
func (j *Job) Config() *config.Config {
	return j.cfg
}

// Settings returns the job-level settings, the root of the inheritance
// chain.
func (j *Job) Settings() *settings.Level {
	return j.settings
}

// Validators exposes the job's token validator set.
func (j *Job) Validators() template.Validators {
	return j.validators
}

// Templates returns the job's registered templates, optionally narrowed.
func (j *Job) Templates(opts template.Opts) []*template.Template {
	var out []*template.Template
	for _, tmpl := range j.templates {
		if opts.Name != "" && tmpl.Name != opts.Name {
			continue
		}
		if opts.Profile != "" && tmpl.Profile != "" && tmpl.Profile != opts.Profile {
			continue
		}
		if opts.DCC != "" && tmpl.DCC != "" && tmpl.DCC != opts.DCC {
			continue
		}
		out = append(out, tmpl)
	}
	return out
}

// FindTemplate narrows the job's template set to exactly one.
func (j *Job) FindTemplate(opts template.Opts) (*template.Template, error) {
	return template.Find(j.templates, opts)
}

// outputTemplates returns the job's output-file templates (render frame
// templates included, seq-dir aggregates excluded).
func (j *Job) outputTemplates() []*template.Template {
	var out []*template.Template
	for _, tmpl := range j.templates {
		def := j.jobCfg.Templates[tmpl.Name]
		if def.Type == "" || def.SeqDir {
			continue
		}
		out = append(out, tmpl)
	}
	return out
}

// seqDirTemplates returns the job's directory-level sequence aggregates.
func (j *Job) seqDirTemplates() []*template.Template {
	var out []*template.Template
	for _, tmpl := range j.templates {
		def := j.jobCfg.Templates[tmpl.Name]
		if def.Type == "" || !def.SeqDir {
			continue
		}
		out = append(out, tmpl)
	}
	return out
}

// templateType returns the output type a template is declared with.
func (j *Job) templateType(name string) string {
	return j.jobCfg.Templates[name].Type
}

// Exists reports whether the job directory is present on disk.
func (j *Job) Exists() bool {
	info, err := os.Stat(filepath.FromSlash(j.Path))
	return err == nil && info.IsDir()
}

// Equal compares jobs by identity path. Two independently constructed jobs
// for the same name compare equal; only the cache layer guarantees a single
// canonical instance.
func (j *Job) Equal(other *Job) bool {
	return other != nil && j.Path == other.Path
}

func (j *Job) String() string {
	return fmt.Sprintf("Job(%s)", j.Name)
}

// defaultSettings is the chain-root defaults layer applied below job
// settings.
func defaultSettings() map[string]any {
	return map[string]any{
		"fps": nil,
		"res": nil,
		"col": nil,
	}
}
