package config

const (
	defaultJobsRoot   = "~/jobs"
	defaultCacheDir   = "~/.cache/slate"
	defaultLogDir     = "~/.local/share/slate/logs"
	defaultDefaultTag = "main"
	defaultVerPadding = 3
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"
	defaultCacheGiB   = 5
	defaultSceneEnv   = "SLATE_CUR_SCENE"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			JobsRoot: defaultJobsRoot,
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		Pipeline: Pipeline{
			DefaultTag: defaultDefaultTag,
			VerPadding: defaultVerPadding,
		},
		DiskCache: DiskCache{
			Enabled: true,
			MaxGiB:  defaultCacheGiB,
		},
		Host: Host{
			SceneEnv: defaultSceneEnv,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
