package config

const (
	defaultStateDir           = "~/.local/share/filemanager/state"
	defaultSkippedDir         = "~/Downloads/Skipped"
	defaultLogDir             = "~/.local/share/filemanager/logs"
	defaultStaticDir          = "~/.local/share/filemanager/viewer"
	defaultServerBind         = "127.0.0.1:8765"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultBulkTimeoutSeconds = 300
	defaultJournalFile        = "journal.db"
	defaultConfigPath         = "~/.config/filemanager/config.toml"
	projectConfigFile         = "filemanager.toml"

	// QueueFileName is the queue document inside the state directory.
	QueueFileName = "file_queue.json"
	// MoveHistoryFileName is the move history document inside the state directory.
	MoveHistoryFileName = "move_history.json"
	// SkipHistoryFileName is the skip history document inside the state directory.
	SkipHistoryFileName = "skip_history.json"
)

// Environment overrides applied after the config file is decoded.
const (
	EnvStateDir   = "FILEMANAGER_STATE_DIR"
	EnvSkippedDir = "FILEMANAGER_SKIPPED_DIR"
	EnvPort       = "FILEMANAGER_PORT"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			SkippedDir: defaultSkippedDir,
			LogDir:     defaultLogDir,
		},
		Server: Server{
			Bind:      defaultServerBind,
			StaticDir: defaultStaticDir,
		},
		State: State{
			LockStores: true,
		},
		Execution: Execution{
			BulkTimeoutSeconds: defaultBulkTimeoutSeconds,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
