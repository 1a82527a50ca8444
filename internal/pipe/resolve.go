package pipe

import (
	"slate/internal/config"
)

// The package-level resolvers remap the path through the configured path
// map before resolution, so addresses recorded on another platform's
// storage root still resolve here.

// ToEntity resolves an arbitrary path to its entity, loading the owning job
// from the jobs root first.
func ToEntity(cfg *config.Config, p string) (*Entity, error) {
	p = NormPath(cfg.MapPath(p))
	job, err := JobFromPath(cfg, p)
	if err != nil {
		return nil, err
	}
	return job.ToEntity(p)
}

// ToWork resolves an arbitrary path to its work file.
func ToWork(cfg *config.Config, p string) (*Work, error) {
	p = NormPath(cfg.MapPath(p))
	job, err := JobFromPath(cfg, p)
	if err != nil {
		return nil, err
	}
	return job.ToWork(p)
}

// ToOutput resolves an arbitrary path to its output.
func ToOutput(cfg *config.Config, p string) (*Output, error) {
	p = NormPath(cfg.MapPath(p))
	job, err := JobFromPath(cfg, p)
	if err != nil {
		return nil, err
	}
	return job.ToOutput(p)
}

// ToSeqDir resolves an arbitrary path to its sequence directory.
func ToSeqDir(cfg *config.Config, p string) (*OutputSeqDir, error) {
	p = NormPath(cfg.MapPath(p))
	job, err := JobFromPath(cfg, p)
	if err != nil {
		return nil, err
	}
	return job.ToSeqDir(p)
}
