package pipe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"slate/internal/template"
)

// OutputSeqDir is a directory-level aggregate for a frame sequence: one
// version of one render stream, addressed without reading its frames.
// Tokens are read from the directory path alone so large sequences can be
// listed cheaply; the contents expand lazily on demand.
type OutputSeqDir struct {
	Entity   *Entity
	Path     string
	Template string
	Type     string

	Task       string
	Tag        string
	OutputName string
	Ver        string
	VerN       int

	expanded bool
	outputs  []*Output
}

// Label returns a short identity like test010/lighting/main/beauty/v002.
func (d *OutputSeqDir) Label() string {
	return fmt.Sprintf("%s/%s/%s/%s/v%s", d.Entity.Name(), d.Task, d.Tag, d.OutputName, d.Ver)
}

// Exists reports whether the sequence directory is present on disk.
func (d *OutputSeqDir) Exists() bool {
	info, err := os.Stat(filepath.FromSlash(d.Path))
	return err == nil && info.IsDir()
}

// Equal compares sequence dirs by identity path.
func (d *OutputSeqDir) Equal(other *OutputSeqDir) bool {
	return other != nil && d.Path == other.Path
}

func (d *OutputSeqDir) String() string {
	return fmt.Sprintf("OutputSeqDir(%s)", d.Label())
}

// ToSeqDir resolves a path to a typed sequence directory under its entity.
func (j *Job) ToSeqDir(p string) (*OutputSeqDir, error) {
	normalized := NormPath(p)
	entity, err := j.ToEntity(normalized)
	if err != nil {
		return nil, err
	}
	return entity.ToSeqDir(normalized)
}

// ToSeqDir resolves a path beneath this entity to a sequence directory.
func (e *Entity) ToSeqDir(p string) (*OutputSeqDir, error) {
	normalized := NormPath(p)
	templates, err := e.seqDirTemplates()
	if err != nil {
		return nil, err
	}
	tmpl, data, err := template.Match(templates, normalized, template.Opts{})
	if err != nil {
		return nil, resolveErr("sequence dir", p, err)
	}
	if err := e.Job.validators.Validate(data); err != nil {
		return nil, resolveErr("sequence dir", p, fmt.Errorf("%w: %v", ErrValidation, err))
	}
	return e.seqDirFromData(tmpl, normalized, data)
}

func (e *Entity) seqDirFromData(tmpl *template.Template, p string, data template.Data) (*OutputSeqDir, error) {
	dir := &OutputSeqDir{
		Entity:     e,
		Path:       p,
		Template:   tmpl.Name,
		Type:       e.Job.templateType(tmpl.Name),
		Task:       data["task"],
		Tag:        data["tag"],
		OutputName: data["output_name"],
		Ver:        data["ver"],
	}
	if dir.Ver != "" {
		n, err := strconv.Atoi(dir.Ver)
		if err != nil {
			return nil, resolveErr("sequence dir", p, fmt.Errorf("%w: bad ver %q", ErrNoMatch, dir.Ver))
		}
		dir.VerN = n
	}
	return dir, nil
}

// seqDirTemplates returns the job's seq-dir templates bound to this entity.
func (e *Entity) seqDirTemplates() ([]*template.Template, error) {
	data := e.entityData()
	var bound []*template.Template
	for _, tmpl := range e.Job.seqDirTemplates() {
		b, err := tmpl.ApplyData(data)
		if err != nil {
			return nil, err
		}
		bound = append(bound, b)
	}
	return bound, nil
}

// FindSeqDirs discovers sequence directories under this entity without
// reading frames, sorted by path.
func (e *Entity) FindSeqDirs(opts OutputOpts) ([]*OutputSeqDir, error) {
	templates, err := e.seqDirTemplates()
	if err != nil {
		return nil, err
	}
	var dirs []*OutputSeqDir
	for _, tmpl := range templates {
		if opts.Type != "" && e.Job.templateType(tmpl.Name) != opts.Type {
			continue
		}
		for _, candidate := range expandPatternDirs(tmpl.Pattern) {
			data, err := tmpl.Parse(candidate)
			if err != nil {
				continue
			}
			if err := e.Job.validators.Validate(data); err != nil {
				continue
			}
			dir, err := e.seqDirFromData(tmpl, candidate, data)
			if err != nil {
				continue
			}
			if opts.Task != "" && dir.Task != opts.Task {
				continue
			}
			if opts.Tag != "" && dir.Tag != opts.Tag {
				continue
			}
			if opts.OutputName != "" && dir.OutputName != opts.OutputName {
				continue
			}
			if opts.Ver != 0 && dir.VerN != opts.Ver {
				continue
			}
			dirs = append(dirs, dir)
		}
	}
	sort.Slice(dirs, func(i, k int) bool { return dirs[i].Path < dirs[k].Path })
	return dirs, nil
}

// Expand reads the directory contents and resolves them to sequence
// outputs. The result is cached on the instance; pass force to re-read.
func (d *OutputSeqDir) Expand(force bool) ([]*Output, error) {
	if d.expanded && !force {
		return d.outputs, nil
	}
	entries, err := os.ReadDir(filepath.FromSlash(d.Path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			d.expanded = true
			d.outputs = nil
			return nil, nil
		}
		return nil, err
	}
	templates, err := d.Entity.outputTemplates()
	if err != nil {
		return nil, err
	}
	seen := map[string]*Output{}
	var outputs []*Output
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		p := path.Join(d.Path, entry.Name())
		tmpl, data, err := template.Match(templates, p, template.Opts{})
		if err != nil {
			continue
		}
		output, err := d.Entity.outputFromData(tmpl, p, data)
		if err != nil {
			continue
		}
		if seen[output.Path] != nil {
			continue
		}
		seen[output.Path] = output
		outputs = append(outputs, output)
	}
	sort.Slice(outputs, func(i, k int) bool { return outputs[i].Path < outputs[k].Path })
	d.expanded = true
	d.outputs = outputs
	return outputs, nil
}
