package pipe

import (
	"fmt"
	"os"
	"path/filepath"

	"slate/internal/settings"
	"slate/internal/template"
)

// Sequence is a grouping directory for shots. It carries its own settings
// level between the job and its shots but is not itself an entity.
type Sequence struct {
	Job  *Job
	Name string
	Path string

	settingsLevel *settings.Level
}

// ToSequence addresses a sequence directory from its name. Returns nil when
// the job's layout has no sequence level.
func (j *Job) ToSequence(name string) *Sequence {
	tmpl, err := j.FindTemplate(template.Opts{Name: "sequence_dir"})
	if err != nil {
		return nil
	}
	p, err := tmpl.Format(template.Data{"sequence": name})
	if err != nil {
		return nil
	}
	return &Sequence{Job: j, Name: name, Path: NormPath(p)}
}

// FindSequences discovers sequence directories in the job.
func (j *Job) FindSequences() ([]*Sequence, error) {
	tmpl, err := j.FindTemplate(template.Opts{Name: "sequence_dir"})
	if err != nil {
		return nil, nil
	}
	var sequences []*Sequence
	for _, dir := range expandPatternDirs(tmpl.Pattern) {
		data, err := tmpl.Parse(dir)
		if err != nil {
			continue
		}
		name := data["sequence"]
		if name == "" {
			continue
		}
		sequences = append(sequences, &Sequence{Job: j, Name: name, Path: dir})
	}
	return sequences, nil
}

// Settings returns the sequence settings level, inheriting from the job.
func (s *Sequence) Settings() *settings.Level {
	if s.settingsLevel == nil {
		s.settingsLevel = settings.NewLevel(filepath.FromSlash(s.Path), s.Job.Settings(), nil)
	}
	return s.settingsLevel
}

// Exists reports whether the sequence directory is present on disk.
func (s *Sequence) Exists() bool {
	info, err := os.Stat(filepath.FromSlash(s.Path))
	return err == nil && info.IsDir()
}

func (s *Sequence) String() string {
	return fmt.Sprintf("Sequence(%s)", s.Name)
}
