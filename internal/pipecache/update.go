package pipecache

import (
	"context"
	"fmt"
	"path/filepath"

	"slate/internal/fileutil"
	"slate/internal/logging"
	"slate/internal/pipe"
	"slate/internal/registry"
)

// UpdateCache notifies the session that a work save produced new outputs:
// each output is recorded in the publish registry, the owning entity's
// output cache is force-rescanned, and stale Latest flags disappear with
// it. Call after a publish completes on disk.
func (s *Session) UpdateCache(ctx context.Context, work *pipe.Work, outputs []*pipe.Output, notes string) error {
	for _, output := range outputs {
		if err := s.recordPublish(ctx, output, notes); err != nil {
			return err
		}
	}

	seen := map[string]struct{}{}
	for _, output := range outputs {
		entity, err := s.ObtEntity(output.Entity.Path)
		if err != nil {
			return err
		}
		if _, done := seen[entity.Path]; done {
			continue
		}
		seen[entity.Path] = struct{}{}
		if _, err := s.FindOutputs(entity, pipe.OutputOpts{}, true); err != nil {
			return err
		}
	}

	if work != nil {
		s.logger.Info("cache updated",
			logging.String(logging.FieldPath, work.Path),
			logging.Int("outputs", len(outputs)))
	}
	return nil
}

func (s *Session) recordPublish(ctx context.Context, output *pipe.Output, notes string) error {
	if s.reg == nil {
		return nil
	}
	entity := output.Entity
	_, err := s.reg.Record(ctx, registry.Publish{
		Job:        entity.Job.Name,
		Profile:    entity.Profile,
		EntityType: entity.EntityType(),
		Entity:     entity.Name(),
		Task:       output.Task,
		Tag:        output.Tag,
		OutputName: output.OutputName,
		Type:       output.Type,
		Ver:        output.VerN,
		Path:       output.Path,
		Extn:       output.Extn,
		Notes:      notes,
	})
	if err != nil {
		return fmt.Errorf("record publish %s: %w", output.Base(), err)
	}
	return nil
}

// VersionUp copies a work file to the next version in its stream and
// returns the canonical instance of the new version.
func (s *Session) VersionUp(work *pipe.Work, notes string) (*pipe.Work, error) {
	if !work.Exists() {
		return nil, fmt.Errorf("version up %s: %w", work.Base(), pipe.ErrMissing)
	}
	next, err := work.FindNext()
	if err != nil {
		return nil, err
	}
	src := filepath.FromSlash(work.Path)
	dst := filepath.FromSlash(next.Path)
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return nil, fmt.Errorf("version up %s: %w", work.Base(), err)
	}
	if notes != "" {
		if err := next.SetNotes(notes); err != nil {
			return nil, err
		}
	}
	s.logger.Info("versioned up",
		logging.String(logging.FieldPath, next.Path),
		logging.Int(logging.FieldVer, next.VerN))
	return s.ObtWork(next.Path)
}
