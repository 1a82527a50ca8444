package pipecache

import (
	"slate/internal/pipe"
)

// CurWork resolves the host's open scene to its canonical work instance.
// Returns nil without error when no scene is open or the scene sits
// outside the pipeline.
func (s *Session) CurWork() (*pipe.Work, error) {
	scene := s.host.CurrentScene()
	if scene == "" {
		return nil, nil
	}
	work, err := s.ObtWork(scene)
	if err != nil {
		return nil, nil
	}
	return work, nil
}

// CurWorkDir resolves the current scene's work dir, or nil.
func (s *Session) CurWorkDir() (*pipe.WorkDir, error) {
	work, err := s.CurWork()
	if err != nil || work == nil {
		return nil, err
	}
	return work.WorkDir, nil
}

// CurEntity resolves the current scene's entity, or nil.
func (s *Session) CurEntity() (*pipe.Entity, error) {
	scene := s.host.CurrentScene()
	if scene == "" {
		return nil, nil
	}
	entity, err := s.ObtEntity(scene)
	if err != nil {
		return nil, nil
	}
	return entity, nil
}

// CurJob resolves the current scene's job, or nil.
func (s *Session) CurJob() (*pipe.Job, error) {
	entity, err := s.CurEntity()
	if err != nil || entity == nil {
		return nil, err
	}
	return entity.Job, nil
}
