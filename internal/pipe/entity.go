package pipe

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"slate/internal/settings"
	"slate/internal/template"
)

// Entity profiles.
const (
	ProfileAsset = "asset"
	ProfileShot  = "shot"
)

// Entity is a unit of creative work within a job: an asset
// (asset_type/asset) or a shot (sequence/shot). Entities are discovered by
// directory scan and template match, never declared.
type Entity struct {
	Job     *Job
	Path    string
	Profile string

	AssetType string
	Asset     string
	Sequence  string
	Shot      string

	settingsLevel *settings.Level
}

// Name returns the asset or shot name.
func (e *Entity) Name() string {
	if e.Profile == ProfileAsset {
		return e.Asset
	}
	return e.Shot
}

// EntityType returns the grouping token: asset type for assets, sequence
// for shots.
func (e *Entity) EntityType() string {
	if e.Profile == ProfileAsset {
		return e.AssetType
	}
	return e.Sequence
}

// Label returns a short human-readable identity like anim/test010.
func (e *Entity) Label() string {
	return e.EntityType() + "/" + e.Name()
}

// Exists reports whether the entity directory is present on disk.
func (e *Entity) Exists() bool {
	info, err := os.Stat(filepath.FromSlash(e.Path))
	return err == nil && info.IsDir()
}

// Equal compares entities by identity path.
func (e *Entity) Equal(other *Entity) bool {
	return other != nil && e.Path == other.Path
}

func (e *Entity) String() string {
	return fmt.Sprintf("Entity(%s %s)", e.Profile, e.Label())
}

// Settings returns this entity's settings level. Shots inherit through
// their sequence; assets inherit straight from the job.
func (e *Entity) Settings() *settings.Level {
	if e.settingsLevel != nil {
		return e.settingsLevel
	}
	parent := e.Job.Settings()
	if e.Profile == ProfileShot && e.Sequence != "" {
		seq := e.Job.ToSequence(e.Sequence)
		if seq != nil {
			parent = seq.Settings()
		}
	}
	e.settingsLevel = settings.NewLevel(filepath.FromSlash(e.Path), parent, nil)
	return e.settingsLevel
}

// entityData returns the token values an entity contributes when binding
// templates beneath it.
func (e *Entity) entityData() template.Data {
	data := template.Data{
		"entity_path": e.Path,
		"entity":      e.Name(),
	}
	if e.Profile == ProfileAsset {
		data["asset_type"] = e.AssetType
		data["asset"] = e.Asset
	} else {
		if e.Sequence != "" {
			data["sequence"] = e.Sequence
		}
		data["shot"] = e.Shot
	}
	return data
}

// entityTemplates lists the job templates that address entity directories.
var entityResolveOrder = []string{"asset_entity", "shot_entity"}

// ToEntity resolves a path within the job to a typed entity. Resolvers run
// in a fixed order (asset first, then shot); a structural mismatch moves on
// to the next resolver rather than failing.
func (j *Job) ToEntity(p string) (*Entity, error) {
	normalized := NormPath(p)
	for _, name := range entityResolveOrder {
		tmpl, err := j.FindTemplate(template.Opts{Name: name})
		if err != nil {
			continue
		}
		cropped := cropToTemplateDepth(normalized, tmpl.Pattern)
		data, err := tmpl.Parse(cropped)
		if err != nil {
			continue
		}
		if err := j.validators.Validate(data); err != nil {
			continue
		}
		return j.entityFromData(tmpl, cropped, data)
	}
	return nil, resolveErr("entity", p, fmt.Errorf("%w: no entity template fits", ErrNoMatch))
}

// ToEntityOr is the probe form of ToEntity: it reports false instead of an
// error when the path is not an entity path at all.
func (j *Job) ToEntityOr(p string) (*Entity, bool) {
	entity, err := j.ToEntity(p)
	if err != nil {
		return nil, false
	}
	return entity, true
}

func (j *Job) entityFromData(tmpl *template.Template, p string, data template.Data) (*Entity, error) {
	entity := &Entity{
		Job:     j,
		Path:    p,
		Profile: tmpl.Profile,
	}
	switch tmpl.Profile {
	case ProfileAsset:
		entity.AssetType = data["asset_type"]
		entity.Asset = data["asset"]
		if entity.Asset == "" {
			return nil, resolveErr("entity", p, fmt.Errorf("%w: template %s lacks asset token", ErrNoMatch, tmpl.Name))
		}
	case ProfileShot:
		entity.Sequence = data["sequence"]
		entity.Shot = data["shot"]
		if entity.Shot == "" {
			return nil, resolveErr("entity", p, fmt.Errorf("%w: template %s lacks shot token", ErrNoMatch, tmpl.Name))
		}
	default:
		return nil, resolveErr("entity", p, fmt.Errorf("%w: template %s has no profile", ErrNoMatch, tmpl.Name))
	}
	return entity, nil
}

// ToAsset addresses an asset directory from tokens, without requiring it to
// exist on disk.
func (j *Job) ToAsset(assetType, name string) (*Entity, error) {
	tmpl, err := j.FindTemplate(template.Opts{Name: "asset_entity"})
	if err != nil {
		return nil, err
	}
	p, err := tmpl.Format(template.Data{"asset_type": assetType, "asset": name})
	if err != nil {
		return nil, err
	}
	return &Entity{Job: j, Path: NormPath(p), Profile: ProfileAsset, AssetType: assetType, Asset: name}, nil
}

// ToShot addresses a shot directory from tokens.
func (j *Job) ToShot(sequence, name string) (*Entity, error) {
	tmpl, err := j.FindTemplate(template.Opts{Name: "shot_entity"})
	if err != nil {
		return nil, err
	}
	data := template.Data{"shot": name}
	if sequence != "" {
		data["sequence"] = sequence
	}
	p, err := tmpl.Format(data)
	if err != nil {
		return nil, err
	}
	return &Entity{Job: j, Path: NormPath(p), Profile: ProfileShot, Sequence: sequence, Shot: name}, nil
}

// FindEntities discovers every asset and shot directory in the job by
// expanding the entity templates against the filesystem.
func (j *Job) FindEntities() ([]*Entity, error) {
	var entities []*Entity
	for _, name := range entityResolveOrder {
		tmpl, err := j.FindTemplate(template.Opts{Name: name})
		if err != nil {
			continue
		}
		for _, dir := range expandPatternDirs(tmpl.Pattern) {
			entity, ok := j.ToEntityOr(dir)
			if !ok {
				continue
			}
			entities = append(entities, entity)
		}
	}
	return entities, nil
}

// FindShots discovers shot entities, optionally narrowed to a sequence.
func (j *Job) FindShots(sequence string) ([]*Entity, error) {
	entities, err := j.FindEntities()
	if err != nil {
		return nil, err
	}
	var shots []*Entity
	for _, entity := range entities {
		if entity.Profile != ProfileShot {
			continue
		}
		if sequence != "" && entity.Sequence != sequence {
			continue
		}
		shots = append(shots, entity)
	}
	return shots, nil
}

// FindAssets discovers asset entities, optionally narrowed to a type.
func (j *Job) FindAssets(assetType string) ([]*Entity, error) {
	entities, err := j.FindEntities()
	if err != nil {
		return nil, err
	}
	var assets []*Entity
	for _, entity := range entities {
		if entity.Profile != ProfileAsset {
			continue
		}
		if assetType != "" && entity.AssetType != assetType {
			continue
		}
		assets = append(assets, entity)
	}
	return assets, nil
}

// cropToTemplateDepth trims a path to the directory depth of a pattern so
// deeper paths (a work file inside a shot) still resolve their owning
// entity.
func cropToTemplateDepth(p, pattern string) string {
	want := strings.Count(pattern, "/")
	segments := strings.Split(p, "/")
	if len(segments) <= want+1 {
		return p
	}
	return strings.Join(segments[:want+1], "/")
}

// expandPatternDirs walks the filesystem along an absolute pattern,
// expanding token segments to the directory entries present at that level.
func expandPatternDirs(pattern string) []string {
	segments := strings.Split(pattern, "/")
	if len(segments) == 0 {
		return nil
	}
	candidates := []string{"/"}
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		var next []string
		if strings.ContainsRune(segment, '{') {
			for _, base := range candidates {
				entries, err := os.ReadDir(filepath.FromSlash(base))
				if err != nil {
					continue
				}
				for _, entry := range entries {
					if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
						continue
					}
					next = append(next, path.Join(base, entry.Name()))
				}
			}
		} else {
			for _, base := range candidates {
				next = append(next, path.Join(base, segment))
			}
		}
		candidates = next
	}
	var dirs []string
	for _, candidate := range candidates {
		info, err := os.Stat(filepath.FromSlash(candidate))
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, candidate)
	}
	return dirs
}
