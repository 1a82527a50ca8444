package pipe

import (
	"fmt"
	"os"
	"path/filepath"

	"slate/internal/template"
)

// WorkDir is the task container under an entity holding versioned work
// files for one DCC.
type WorkDir struct {
	Entity *Entity
	Path   string
	Task   string
	DCC    string

	workTmpl *template.Template
}

// Label returns a short identity like anim/test010/maya/anim.
func (w *WorkDir) Label() string {
	return w.Entity.Label() + "/" + w.DCC + "/" + w.Task
}

// Exists reports whether the work dir is present on disk.
func (w *WorkDir) Exists() bool {
	info, err := os.Stat(filepath.FromSlash(w.Path))
	return err == nil && info.IsDir()
}

// Equal compares work dirs by identity path.
func (w *WorkDir) Equal(other *WorkDir) bool {
	return other != nil && w.Path == other.Path
}

func (w *WorkDir) String() string {
	return fmt.Sprintf("WorkDir(%s)", w.Label())
}

// workTemplate returns the job's work template bound to this work dir's
// tokens, compiled once per work dir.
func (w *WorkDir) workTemplate() (*template.Template, error) {
	if w.workTmpl != nil {
		return w.workTmpl, nil
	}
	tmpl, err := w.Entity.Job.FindTemplate(template.Opts{Name: "work"})
	if err != nil {
		return nil, err
	}
	data := w.Entity.entityData()
	data["work_dir"] = w.Path
	data["task"] = w.Task
	data["dcc"] = w.DCC
	bound, err := tmpl.ApplyData(data)
	if err != nil {
		return nil, err
	}
	w.workTmpl = bound
	return bound, nil
}

// ToWorkDir resolves a path at or below a work dir to its typed work dir.
func (j *Job) ToWorkDir(p string) (*WorkDir, error) {
	normalized := NormPath(p)
	entity, err := j.ToEntity(normalized)
	if err != nil {
		return nil, err
	}
	return entity.ToWorkDirFromPath(normalized)
}

// ToWorkDirFromPath resolves a path beneath this entity to its work dir.
func (e *Entity) ToWorkDirFromPath(p string) (*WorkDir, error) {
	tmpl, err := e.workDirTemplate()
	if err != nil {
		return nil, err
	}
	cropped := cropToTemplateDepth(NormPath(p), tmpl.Pattern)
	data, err := tmpl.Parse(cropped)
	if err != nil {
		return nil, resolveErr("work dir", p, err)
	}
	if err := e.Job.validators.Validate(data); err != nil {
		return nil, resolveErr("work dir", p, fmt.Errorf("%w: %v", ErrValidation, err))
	}
	return &WorkDir{
		Entity: e,
		Path:   cropped,
		Task:   data["task"],
		DCC:    data["dcc"],
	}, nil
}

// ToWorkDir addresses a work dir under this entity from tokens.
func (e *Entity) ToWorkDir(dcc, task string) (*WorkDir, error) {
	tmpl, err := e.workDirTemplate()
	if err != nil {
		return nil, err
	}
	p, err := tmpl.Format(template.Data{"dcc": dcc, "task": task})
	if err != nil {
		return nil, err
	}
	return &WorkDir{Entity: e, Path: NormPath(p), Task: task, DCC: dcc}, nil
}

// FindWorkDirs discovers work dirs beneath this entity by expanding the
// work_dir template against the filesystem.
func (e *Entity) FindWorkDirs() ([]*WorkDir, error) {
	tmpl, err := e.workDirTemplate()
	if err != nil {
		return nil, err
	}
	var dirs []*WorkDir
	for _, dir := range expandPatternDirs(tmpl.Pattern) {
		workDir, err := e.ToWorkDirFromPath(dir)
		if err != nil {
			continue
		}
		dirs = append(dirs, workDir)
	}
	return dirs, nil
}

// workDirTemplate returns the job's work_dir template bound to this
// entity's tokens.
func (e *Entity) workDirTemplate() (*template.Template, error) {
	tmpl, err := e.Job.FindTemplate(template.Opts{Name: "work_dir"})
	if err != nil {
		return nil, err
	}
	return tmpl.ApplyData(e.entityData())
}
