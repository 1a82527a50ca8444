package pipecache

import (
	"log/slog"
	"path"
	"sync"

	"github.com/google/uuid"

	"slate/internal/config"
	"slate/internal/diskcache"
	"slate/internal/host"
	"slate/internal/logging"
	"slate/internal/pipe"
	"slate/internal/registry"
)

// Session is the identity-preserving cache layer over the pipe model.
// Within one generation, resolving the same identity path always returns
// the same instance, so callers can hang state off objects and compare
// them by pointer. Reset starts a fresh generation and drops every cached
// instance at once.
type Session struct {
	mu sync.Mutex

	cfg    *config.Config
	logger *slog.Logger
	host   host.Host
	disk   *diskcache.Cache
	reg    *registry.Store

	generation string

	jobs     map[string]*pipe.Job
	entities map[string]*pipe.Entity
	workDirs map[string]*pipe.WorkDir
	works    map[string]*pipe.Work
	seqDirs  map[string]*pipe.OutputSeqDir

	// outputs caches discovered output lists per entity path.
	outputs map[string][]*pipe.Output

	jobNames     []string
	jobNamesRead bool
}

// Options configures a session. Zero-value fields get sensible defaults;
// Disk and Registry may stay nil to disable those layers.
type Options struct {
	Logger   *slog.Logger
	Host     host.Host
	Disk     *diskcache.Cache
	Registry *registry.Store
}

// NewSession builds a cache session for the given configuration.
func NewSession(cfg *config.Config, opts Options) *Session {
	h := opts.Host
	if h == nil {
		h = host.NewEnvHost(cfg)
	}
	s := &Session{
		cfg:    cfg,
		logger: logging.NewComponentLogger(opts.Logger, "pipecache"),
		host:   h,
		disk:   opts.Disk,
		reg:    opts.Registry,
	}
	s.resetLocked()
	return s
}

// Generation returns the current generation identifier. It changes on
// every Reset, so long-lived callers can detect that their references are
// stale.
func (s *Session) Generation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Reset drops every cached instance and starts a new generation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.logger.Debug("cache reset", logging.String(logging.FieldGeneration, s.generation))
}

func (s *Session) resetLocked() {
	s.generation = uuid.NewString()
	s.jobs = map[string]*pipe.Job{}
	s.entities = map[string]*pipe.Entity{}
	s.workDirs = map[string]*pipe.WorkDir{}
	s.works = map[string]*pipe.Work{}
	s.seqDirs = map[string]*pipe.OutputSeqDir{}
	s.outputs = map[string][]*pipe.Output{}
	s.jobNames = nil
	s.jobNamesRead = false
}

// Registry exposes the publish registry wired into the session (nil when
// disabled).
func (s *Session) Registry() *registry.Store {
	return s.reg
}

// Host exposes the host adapter.
func (s *Session) Host() host.Host {
	return s.host
}

// JobNames lists job directory names under the jobs root. The listing is
// disk-cached keyed on the root directory's mtime, so repeated sessions on
// a slow network mount skip the scan; force bypasses both cache layers.
func (s *Session) JobNames(force bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobNamesRead && !force {
		return s.jobNames, nil
	}

	var names []string
	if !force && s.disk.Get(s.cfg.Paths.JobsRoot, "jobs", "names", &names) {
		s.jobNames = names
		s.jobNamesRead = true
		return names, nil
	}

	names, err := pipe.ReadJobNames(s.cfg)
	if err != nil {
		return nil, err
	}
	if err := s.disk.Put(s.cfg.Paths.JobsRoot, "jobs", "names", names); err != nil {
		s.logger.Warn("disk cache write failed", logging.Error(err))
	}
	s.jobNames = names
	s.jobNamesRead = true
	return names, nil
}

// ObtJob returns the canonical job instance for a name, loading it on
// first use.
func (s *Session) ObtJob(name string) (*pipe.Job, error) {
	jobPath := pipe.NormPath(path.Join(s.cfg.Paths.JobsRoot, name))
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.obtJobLocked(jobPath)
}

func (s *Session) obtJobLocked(jobPath string) (*pipe.Job, error) {
	if job, ok := s.jobs[jobPath]; ok {
		return job, nil
	}
	job, err := pipe.LoadJob(s.cfg, jobPath)
	if err != nil {
		return nil, err
	}
	s.jobs[jobPath] = job
	return job, nil
}

// ObtJobs returns canonical instances for every job under the root.
func (s *Session) ObtJobs(force bool) ([]*pipe.Job, error) {
	names, err := s.JobNames(force)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]*pipe.Job, 0, len(names))
	for _, name := range names {
		job, err := s.obtJobLocked(pipe.NormPath(path.Join(s.cfg.Paths.JobsRoot, name)))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// ObtEntity returns the canonical entity for a path, resolving and caching
// it on first use. Deeper paths (a work file) resolve to their owning
// entity's canonical instance. Incoming paths are remapped through the
// configured path map, so addresses from another platform land on the same
// canonical instance.
func (s *Session) ObtEntity(p string) (*pipe.Entity, error) {
	normalized := s.normalize(p)
	job, err := s.jobFor(normalized)
	if err != nil {
		return nil, err
	}
	entity, err := job.ToEntity(normalized)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canonEntityLocked(entity), nil
}

func (s *Session) canonEntityLocked(entity *pipe.Entity) *pipe.Entity {
	if existing, ok := s.entities[entity.Path]; ok {
		return existing
	}
	s.entities[entity.Path] = entity
	return entity
}

// ObtWorkDir returns the canonical work dir for a path.
func (s *Session) ObtWorkDir(p string) (*pipe.WorkDir, error) {
	normalized := s.normalize(p)
	job, err := s.jobFor(normalized)
	if err != nil {
		return nil, err
	}
	workDir, err := job.ToWorkDir(normalized)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canonWorkDirLocked(workDir), nil
}

func (s *Session) canonWorkDirLocked(workDir *pipe.WorkDir) *pipe.WorkDir {
	if existing, ok := s.workDirs[workDir.Path]; ok {
		return existing
	}
	workDir.Entity = s.canonEntityLocked(workDir.Entity)
	s.workDirs[workDir.Path] = workDir
	return workDir
}

// ObtWork returns the canonical work instance for a path.
func (s *Session) ObtWork(p string) (*pipe.Work, error) {
	normalized := s.normalize(p)
	job, err := s.jobFor(normalized)
	if err != nil {
		return nil, err
	}
	work, err := job.ToWork(normalized)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canonWorkLocked(work), nil
}

func (s *Session) canonWorkLocked(work *pipe.Work) *pipe.Work {
	if existing, ok := s.works[work.Path]; ok {
		return existing
	}
	work.WorkDir = s.canonWorkDirLocked(work.WorkDir)
	s.works[work.Path] = work
	return work
}

// ObtOutput returns the canonical output for a path. Outputs are cached
// through their entity's discovery list so Latest flags stay coherent.
func (s *Session) ObtOutput(p string) (*pipe.Output, error) {
	normalized := s.normalize(p)
	job, err := s.jobFor(normalized)
	if err != nil {
		return nil, err
	}
	output, err := job.ToOutput(normalized)
	if err != nil {
		return nil, err
	}
	entity, err := s.ObtEntity(output.Entity.Path)
	if err != nil {
		return nil, err
	}
	outputs, err := s.FindOutputs(entity, pipe.OutputOpts{}, false)
	if err != nil {
		return nil, err
	}
	for _, candidate := range outputs {
		if candidate.Path == output.Path {
			return candidate, nil
		}
	}
	// Not on disk yet: return the resolved instance with its entity
	// canonicalized, without poisoning the discovery cache.
	output.Entity = entity
	return output, nil
}

// ObtSeqDir returns the canonical sequence dir for a path.
func (s *Session) ObtSeqDir(p string) (*pipe.OutputSeqDir, error) {
	normalized := s.normalize(p)
	job, err := s.jobFor(normalized)
	if err != nil {
		return nil, err
	}
	seqDir, err := job.ToSeqDir(normalized)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.seqDirs[seqDir.Path]; ok {
		return existing, nil
	}
	seqDir.Entity = s.canonEntityLocked(seqDir.Entity)
	s.seqDirs[seqDir.Path] = seqDir
	return seqDir, nil
}

// FindOutputs returns the cached output list for an entity, scanning on
// first use. Force drops the cached list and re-reads the disk.
func (s *Session) FindOutputs(entity *pipe.Entity, opts pipe.OutputOpts, force bool) ([]*pipe.Output, error) {
	s.mu.Lock()
	cached, ok := s.outputs[entity.Path]
	s.mu.Unlock()

	if !ok || force {
		scanned, err := entity.FindOutputs(pipe.OutputOpts{})
		if err != nil {
			return nil, err
		}
		for _, output := range scanned {
			output.Entity = entity
		}
		s.mu.Lock()
		s.outputs[entity.Path] = scanned
		s.mu.Unlock()
		cached = scanned
	}

	return filterCachedOutputs(cached, opts), nil
}

func filterCachedOutputs(outputs []*pipe.Output, opts pipe.OutputOpts) []*pipe.Output {
	var kept []*pipe.Output
	for _, output := range outputs {
		if opts.Type != "" && output.Type != opts.Type {
			continue
		}
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

// normalize remaps a path through the configured path map and reduces it
// to identity form. Every Obt* entry point funnels through here so mapped
// and native addresses share one cache key.
func (s *Session) normalize(p string) string {
	return pipe.NormPath(s.cfg.MapPath(p))
}

// jobFor resolves and canonicalizes the job owning a path.
func (s *Session) jobFor(p string) (*pipe.Job, error) {
	jobPath, err := pipe.JobRootFromPath(s.cfg, p)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.obtJobLocked(jobPath)
}
