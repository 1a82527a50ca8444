package pipe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"slate/internal/template"
)

// Output types declared by job templates.
const (
	OutputTypePublish = "publish"
	OutputTypeCache   = "cache"
	OutputTypeRender  = "render"
	OutputTypeMov     = "mov"
)

// Output is one published result file or frame sequence under an entity.
// Identity is the path; for sequences the path carries the frame expression
// rather than a concrete frame number.
type Output struct {
	Entity   *Entity
	Path     string
	Template string
	Type     string

	Task       string
	Tag        string
	OutputName string
	Extn       string
	Ver        string
	VerN       int

	// Frame is the frame expression for sequence outputs (e.g. %04d),
	// empty for single-file outputs.
	Frame string

	// Latest is set by discovery when this output holds the highest
	// version in its stream.
	Latest bool
}

// OutputOpts narrows output discovery.
type OutputOpts struct {
	Type       string
	Task       string
	Tag        string
	OutputName string
	Ver        int
}

// IsSeq reports whether the output is a frame sequence.
func (o *Output) IsSeq() bool {
	return o.Frame != ""
}

// IsVideo reports whether the output is a video container.
func (o *Output) IsVideo() bool {
	return IsVideoExtn(o.Extn)
}

// Versionless reports whether the output sits outside the version axis.
func (o *Output) Versionless() bool {
	return o.Ver == ""
}

// Job returns the owning job.
func (o *Output) Job() *Job {
	return o.Entity.Job
}

// Base returns the file name, with the frame expression for sequences.
func (o *Output) Base() string {
	return path.Base(o.Path)
}

// Exists reports whether the output is present on disk. Sequences exist
// when at least one frame does.
func (o *Output) Exists() bool {
	if o.IsSeq() {
		frames, err := o.FindFrames()
		return err == nil && len(frames) > 0
	}
	info, err := os.Stat(filepath.FromSlash(o.Path))
	return err == nil && info.Mode().IsRegular()
}

// Equal compares outputs by identity path.
func (o *Output) Equal(other *Output) bool {
	return other != nil && o.Path == other.Path
}

func (o *Output) String() string {
	return fmt.Sprintf("Output(%s %s)", o.Type, o.Base())
}

// streamKey groups outputs into version streams: identity minus ver.
func (o *Output) streamKey() string {
	return strings.Join([]string{o.Template, o.Task, o.Tag, o.OutputName, o.Extn}, "\x00")
}

// FindFrames lists the concrete frame numbers on disk for a sequence
// output, sorted ascending.
func (o *Output) FindFrames() ([]int, error) {
	if !o.IsSeq() {
		return nil, nil
	}
	re, err := frameGlob(o.Base())
	if err != nil {
		return nil, err
	}
	dir := path.Dir(o.Path)
	entries, err := os.ReadDir(filepath.FromSlash(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var frames []int
	for _, entry := range entries {
		m := re.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		frames = append(frames, n)
	}
	sort.Ints(frames)
	return frames, nil
}

// frameGlob turns a %0Nd frame expression base name into a matcher that
// captures the frame digits.
func frameGlob(base string) (*regexp.Regexp, error) {
	idx := strings.Index(base, "%")
	if idx < 0 {
		return nil, fmt.Errorf("no frame expression in %q", base)
	}
	end := strings.IndexRune(base[idx:], 'd')
	if end < 0 {
		return nil, fmt.Errorf("bad frame expression in %q", base)
	}
	end += idx + 1
	pattern := "^" + regexp.QuoteMeta(base[:idx]) + `(\d+)` + regexp.QuoteMeta(base[end:]) + "$"
	return regexp.Compile(pattern)
}

// ToOutput resolves an arbitrary path under the job to a typed output.
// Frame files resolve to their owning sequence output.
func (j *Job) ToOutput(p string) (*Output, error) {
	normalized := NormPath(p)
	entity, err := j.ToEntity(normalized)
	if err != nil {
		return nil, err
	}
	return entity.ToOutput(normalized)
}

// ToOutputOr is the probe form of ToOutput.
func (j *Job) ToOutputOr(p string) (*Output, bool) {
	output, err := j.ToOutput(p)
	if err != nil {
		return nil, false
	}
	return output, true
}

// ToOutput resolves a path beneath this entity to a typed output.
func (e *Entity) ToOutput(p string) (*Output, error) {
	normalized := NormPath(p)
	templates, err := e.outputTemplates()
	if err != nil {
		return nil, err
	}
	tmpl, data, err := template.Match(templates, normalized, template.Opts{})
	if err != nil {
		return nil, resolveErr("output", p, err)
	}
	if err := e.Job.validators.Validate(data); err != nil {
		return nil, resolveErr("output", p, fmt.Errorf("%w: %v", ErrValidation, err))
	}
	return e.outputFromData(tmpl, normalized, data)
}

func (e *Entity) outputFromData(tmpl *template.Template, p string, data template.Data) (*Output, error) {
	output := &Output{
		Entity:     e,
		Template:   tmpl.Name,
		Type:       e.Job.templateType(tmpl.Name),
		Task:       data["task"],
		Tag:        data["tag"],
		OutputName: data["output_name"],
		Extn:       data["extn"],
		Ver:        data["ver"],
	}
	if output.Ver != "" {
		n, err := strconv.Atoi(output.Ver)
		if err != nil {
			return nil, resolveErr("output", p, fmt.Errorf("%w: bad ver %q", ErrNoMatch, output.Ver))
		}
		output.VerN = n
	}
	if frame := data["frame"]; frame != "" {
		// Concrete frame files collapse to the sequence identity.
		expr := frame
		if !strings.HasPrefix(frame, "%") {
			expr = fmt.Sprintf("%%0%dd", len(frame))
		}
		output.Frame = expr
		bound, err := tmpl.ApplyData(template.Data{"frame": expr})
		if err != nil {
			return nil, err
		}
		formatted, err := bound.Format(data)
		if err != nil {
			return nil, err
		}
		output.Path = NormPath(formatted)
	} else {
		output.Path = p
	}
	return output, nil
}

// ToOutputFrom addresses an output from tokens via a named output
// template, without requiring it to exist on disk.
func (e *Entity) ToOutputFrom(name string, data template.Data) (*Output, error) {
	templates, err := e.outputTemplates()
	if err != nil {
		return nil, err
	}
	tmpl, err := template.Find(templates, template.Opts{Name: name})
	if err != nil {
		return nil, err
	}
	p, err := tmpl.Format(data)
	if err != nil {
		return nil, err
	}
	normalized := NormPath(p)
	parsed, err := tmpl.Parse(normalized)
	if err != nil {
		return nil, resolveErr("output", p, err)
	}
	return e.outputFromData(tmpl, normalized, parsed)
}

// ToPublish addresses the publish output a work file releases to: same
// task, tag and version, with the given extension (the work's own when
// empty).
func (w *Work) ToPublish(extn string) (*Output, error) {
	if extn == "" {
		extn = w.Extn
	}
	return w.Entity().ToOutputFrom("publish", template.Data{
		"task": w.Task(),
		"tag":  w.Tag,
		"ver":  w.Ver,
		"extn": extn,
	})
}

// outputTemplates returns the job's output-file templates bound to this
// entity.
func (e *Entity) outputTemplates() ([]*template.Template, error) {
	data := e.entityData()
	var bound []*template.Template
	for _, tmpl := range e.Job.outputTemplates() {
		b, err := tmpl.ApplyData(data)
		if err != nil {
			return nil, err
		}
		bound = append(bound, b)
	}
	return bound, nil
}

// FindOutputs discovers outputs under this entity, narrowed by opts. Frame
// files are grouped into one sequence output per version. Each version
// stream's highest version is flagged Latest.
func (e *Entity) FindOutputs(opts OutputOpts) ([]*Output, error) {
	templates, err := e.outputTemplates()
	if err != nil {
		return nil, err
	}
	seen := map[string]*Output{}
	var outputs []*Output
	for _, tmpl := range templates {
		if opts.Type != "" && e.Job.templateType(tmpl.Name) != opts.Type {
			continue
		}
		dir := path.Dir(tmpl.Pattern)
		for _, candidateDir := range expandPatternDirs(dir) {
			entries, err := os.ReadDir(filepath.FromSlash(candidateDir))
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
					continue
				}
				p := path.Join(candidateDir, entry.Name())
				data, err := tmpl.Parse(p)
				if err != nil {
					continue
				}
				if err := e.Job.validators.Validate(data); err != nil {
					continue
				}
				output, err := e.outputFromData(tmpl, p, data)
				if err != nil {
					continue
				}
				if prior := seen[output.Path]; prior != nil {
					continue
				}
				seen[output.Path] = output
				outputs = append(outputs, output)
			}
		}
	}
	markLatest(outputs)
	outputs = filterOutputs(outputs, opts)
	sort.Slice(outputs, func(i, k int) bool { return outputs[i].Path < outputs[k].Path })
	return outputs, nil
}

func filterOutputs(outputs []*Output, opts OutputOpts) []*Output {
	var kept []*Output
	for _, output := range outputs {
		if opts.Task != "" && output.Task != opts.Task {
			continue
		}
		if opts.Tag != "" && output.Tag != opts.Tag {
			continue
		}
		if opts.OutputName != "" && output.OutputName != opts.OutputName {
			continue
		}
		if opts.Ver != 0 && output.VerN != opts.Ver {
			continue
		}
		kept = append(kept, output)
	}
	return kept
}

// markLatest flags the highest version in each stream. Versionless outputs
// sit outside the version axis and are never flagged.
func markLatest(outputs []*Output) {
	best := map[string]*Output{}
	for _, output := range outputs {
		if output.Versionless() {
			continue
		}
		key := output.streamKey()
		if prior := best[key]; prior == nil || output.VerN > prior.VerN {
			best[key] = output
		}
	}
	for _, output := range best {
		output.Latest = true
	}
}

// FindLatest returns the latest version in this output's stream, or nil
// for versionless outputs.
func (o *Output) FindLatest() (*Output, error) {
	if o.Versionless() {
		return nil, nil
	}
	outputs, err := o.Entity.FindOutputs(OutputOpts{})
	if err != nil {
		return nil, err
	}
	key := o.streamKey()
	var latest *Output
	for _, candidate := range outputs {
		if candidate.streamKey() != key {
			continue
		}
		if latest == nil || candidate.VerN > latest.VerN {
			latest = candidate
		}
	}
	return latest, nil
}

// IsLatest reports whether this output holds the highest version of its
// stream on disk.
func (o *Output) IsLatest() (bool, error) {
	latest, err := o.FindLatest()
	if err != nil {
		return false, err
	}
	return latest != nil && latest.Equal(o), nil
}
