package pipe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"slate/internal/fileutil"
	"slate/internal/template"
)

const (
	pipeSubdir     = ".slate"
	backupSubdir   = ".bkp"
	metadataSubdir = "metadata"
	backupStamp    = "060102_150405"
)

// Work is one versioned work file in a work dir's version stream. The
// stream identity is the work dir plus tag; ver selects a member.
type Work struct {
	WorkDir *WorkDir
	Path    string
	Tag     string
	Ver     string
	VerN    int
	Extn    string
}

// Metadata is the sidecar record written next to saved work files.
type Metadata struct {
	Owner   string         `yaml:"owner,omitempty"`
	Notes   string         `yaml:"notes,omitempty"`
	SavedAt time.Time      `yaml:"saved_at,omitempty"`
	Size    int64          `yaml:"size,omitempty"`
	Extra   map[string]any `yaml:"extra,omitempty"`
}

// Job returns the owning job.
func (w *Work) Job() *Job {
	return w.WorkDir.Entity.Job
}

// Entity returns the owning entity.
func (w *Work) Entity() *Entity {
	return w.WorkDir.Entity
}

// Task returns the owning work dir's task.
func (w *Work) Task() string {
	return w.WorkDir.Task
}

// Base returns the file name.
func (w *Work) Base() string {
	return path.Base(w.Path)
}

// Label returns a short identity like test010/anim/main/v002.
func (w *Work) Label() string {
	return fmt.Sprintf("%s/%s/%s/v%s", w.Entity().Name(), w.Task(), w.Tag, w.Ver)
}

// Exists reports whether the work file is present on disk.
func (w *Work) Exists() bool {
	info, err := os.Stat(filepath.FromSlash(w.Path))
	return err == nil && info.Mode().IsRegular()
}

// Equal compares works by identity path.
func (w *Work) Equal(other *Work) bool {
	return other != nil && w.Path == other.Path
}

func (w *Work) String() string {
	return fmt.Sprintf("Work(%s)", w.Base())
}

// ToWork addresses a work file in this work dir from tokens. A zero ver
// means v001; an empty tag takes the configured default; an empty extn
// takes the work dir's DCC scene extension.
func (wd *WorkDir) ToWork(tag string, ver int, extn string) (*Work, error) {
	if tag == "" {
		tag = wd.Entity.Job.cfg.Pipeline.DefaultTag
	}
	if extn == "" {
		extn = ExtnFromDCC(wd.DCC)
		if extn == "" {
			return nil, fmt.Errorf("work: no scene extension for dcc %q", wd.DCC)
		}
	}
	if ver <= 0 {
		ver = 1
	}
	tmpl, err := wd.workTemplate()
	if err != nil {
		return nil, err
	}
	p, err := tmpl.Format(template.Data{
		"tag":  tag,
		"ver":  strconv.Itoa(ver),
		"extn": extn,
	})
	if err != nil {
		return nil, err
	}
	work, err := wd.workFromPath(NormPath(p))
	if err != nil {
		return nil, err
	}
	return work, nil
}

// ToWorkFromPath resolves a path to a work file in this work dir.
func (wd *WorkDir) ToWorkFromPath(p string) (*Work, error) {
	return wd.workFromPath(NormPath(p))
}

func (wd *WorkDir) workFromPath(p string) (*Work, error) {
	tmpl, err := wd.workTemplate()
	if err != nil {
		return nil, err
	}
	data, err := tmpl.Parse(p)
	if err != nil {
		return nil, resolveErr("work", p, err)
	}
	if err := wd.Entity.Job.validators.Validate(data); err != nil {
		return nil, resolveErr("work", p, fmt.Errorf("%w: %v", ErrValidation, err))
	}
	verN, err := strconv.Atoi(data["ver"])
	if err != nil {
		return nil, resolveErr("work", p, fmt.Errorf("%w: bad ver %q", ErrNoMatch, data["ver"]))
	}
	return &Work{
		WorkDir: wd,
		Path:    p,
		Tag:     data["tag"],
		Ver:     data["ver"],
		VerN:    verN,
		Extn:    data["extn"],
	}, nil
}

// ToWork resolves an arbitrary path under the job to a typed work file.
func (j *Job) ToWork(p string) (*Work, error) {
	workDir, err := j.ToWorkDir(p)
	if err != nil {
		return nil, err
	}
	return workDir.ToWorkFromPath(p)
}

// FindWorks lists work files in this work dir, sorted by path. Files that
// do not fit the work template are ignored.
func (wd *WorkDir) FindWorks() ([]*Work, error) {
	tmpl, err := wd.workTemplate()
	if err != nil {
		return nil, err
	}
	dir := path.Dir(tmpl.Pattern)
	entries, err := os.ReadDir(filepath.FromSlash(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list works %s: %w", dir, err)
	}
	var works []*Work
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		work, err := wd.workFromPath(path.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		works = append(works, work)
	}
	sort.Slice(works, func(i, k int) bool { return works[i].Path < works[k].Path })
	return works, nil
}

// FindVers lists the existing members of this work's version stream (same
// work dir and tag), sorted by version.
func (w *Work) FindVers() ([]*Work, error) {
	works, err := w.WorkDir.FindWorks()
	if err != nil {
		return nil, err
	}
	var vers []*Work
	for _, candidate := range works {
		if candidate.Tag != w.Tag {
			continue
		}
		vers = append(vers, candidate)
	}
	sort.Slice(vers, func(i, k int) bool { return vers[i].VerN < vers[k].VerN })
	return vers, nil
}

// FindLatest returns the highest existing version in this work's stream, or
// nil when none exist on disk.
func (w *Work) FindLatest() (*Work, error) {
	vers, err := w.FindVers()
	if err != nil {
		return nil, err
	}
	if len(vers) == 0 {
		return nil, nil
	}
	return vers[len(vers)-1], nil
}

// FindNext returns the next unsaved version in this work's stream:
// max existing ver plus one, or v001 for an empty stream.
func (w *Work) FindNext() (*Work, error) {
	latest, err := w.FindLatest()
	if err != nil {
		return nil, err
	}
	next := 1
	if latest != nil {
		next = latest.VerN + 1
	}
	return w.WorkDir.ToWork(w.Tag, next, w.Extn)
}

// Save writes the work file. An existing file at the same version is backed
// up first. Content may be nil to create an empty placeholder. The metadata
// sidecar records owner, notes and save time.
func (w *Work) Save(content []byte, notes string) error {
	if w.Exists() {
		if err := w.backup(); err != nil {
			return err
		}
	}
	osPath := filepath.FromSlash(w.Path)
	if content == nil {
		if err := fileutil.Touch(osPath); err != nil {
			return fmt.Errorf("save %s: %w", w.Base(), err)
		}
	} else {
		if err := fileutil.WriteFileAtomic(osPath, content, 0o644); err != nil {
			return fmt.Errorf("save %s: %w", w.Base(), err)
		}
	}

	meta := Metadata{
		Owner:   currentUser(),
		Notes:   notes,
		SavedAt: time.Now().UTC(),
		Size:    int64(len(content)),
	}
	return writeMetadata(w.metadataPath(), meta)
}

// SetNotes rewrites the notes field of the metadata sidecar.
func (w *Work) SetNotes(notes string) error {
	meta, err := readMetadata(w.metadataPath())
	if err != nil {
		return err
	}
	meta.Notes = notes
	return writeMetadata(w.metadataPath(), meta)
}

// AddMetadata merges a key into the sidecar's extra map.
func (w *Work) AddMetadata(key string, value any) error {
	meta, err := readMetadata(w.metadataPath())
	if err != nil {
		return err
	}
	if meta.Extra == nil {
		meta.Extra = map[string]any{}
	}
	meta.Extra[key] = value
	return writeMetadata(w.metadataPath(), meta)
}

// Metadata reads the sidecar record. A missing sidecar yields the zero
// value.
func (w *Work) Metadata() (Metadata, error) {
	return readMetadata(w.metadataPath())
}

// Notes returns the sidecar notes field.
func (w *Work) Notes() string {
	meta, err := readMetadata(w.metadataPath())
	if err != nil {
		return ""
	}
	return meta.Notes
}

// Owner returns the sidecar owner field.
func (w *Work) Owner() string {
	meta, err := readMetadata(w.metadataPath())
	if err != nil {
		return ""
	}
	return meta.Owner
}

func (w *Work) metadataPath() string {
	return filepath.Join(
		filepath.FromSlash(w.WorkDir.Path),
		pipeSubdir, metadataSubdir, w.Base()+".yml")
}

// backup copies the current file contents into the work dir's backup
// folder with a timestamp suffix.
func (w *Work) backup() error {
	stamp := time.Now().Format(backupStamp)
	base := w.Base()
	stem := strings.TrimSuffix(base, path.Ext(base))
	bkp := filepath.Join(
		filepath.FromSlash(w.WorkDir.Path),
		pipeSubdir, backupSubdir,
		fmt.Sprintf("%s_%s.%s", stem, stamp, w.Extn))
	if err := fileutil.CopyFile(filepath.FromSlash(w.Path), bkp); err != nil {
		return fmt.Errorf("backup %s: %w", base, err)
	}
	return nil
}

// FindBkps lists this work's backups, sorted oldest first.
func (w *Work) FindBkps() ([]string, error) {
	dir := filepath.Join(filepath.FromSlash(w.WorkDir.Path), pipeSubdir, backupSubdir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	base := w.Base()
	stem := strings.TrimSuffix(base, path.Ext(base))
	var backups []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, stem+"_") {
			continue
		}
		backups = append(backups, filepath.Join(dir, name))
	}
	sort.Strings(backups)
	return backups, nil
}

// FlushBkps removes this work's backups. The force flag is required.
func (w *Work) FlushBkps(force bool) error {
	if !force {
		return errors.New("flush backups: force required")
	}
	backups, err := w.FindBkps()
	if err != nil {
		return err
	}
	for _, bkp := range backups {
		if err := os.Remove(bkp); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
