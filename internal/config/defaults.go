package config

const (
	defaultSharedDir        = "~/Dropbox/ACM"
	defaultLocalDir         = "~/.local/share/acmsync/mirrors"
	defaultLogDir           = "~/.local/share/acmsync/logs"
	defaultSRNDir           = "~/.local/share/acmsync/srn"
	defaultServerURL        = "http://127.0.0.1:7490"
	defaultServerTimeout    = 15
	defaultStorageBackend   = StorageBackendDir
	defaultKeepRevisions    = 5
	defaultSRNPrefix        = "B-"
	defaultSRNBlockSize     = 512
	defaultDaemonBind       = "127.0.0.1:7490"
	defaultDBDriver         = DBDriverSQLite
	defaultMinClientVersion = 1
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultUserName         = "unknown"
	defaultComputerName     = "unknown-host"
	maxSRNBlockSize         = 0x10000
	defaultMinFreeSpaceMiB  = 256
)

// Storage backends understood by the revision store factory.
const (
	StorageBackendDir = "dir"
	StorageBackendS3  = "s3"
)

// Database drivers understood by the checkout server store.
const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SharedDir: defaultSharedDir,
			LocalDir:  defaultLocalDir,
			LogDir:    defaultLogDir,
			SRNDir:    defaultSRNDir,
		},
		Server: Server{
			URL:            defaultServerURL,
			TimeoutSeconds: defaultServerTimeout,
		},
		Storage: Storage{
			Backend:         defaultStorageBackend,
			KeepRevisions:   defaultKeepRevisions,
			MinFreeSpaceMiB: defaultMinFreeSpaceMiB,
		},
		SRN: SRN{
			Prefix:    defaultSRNPrefix,
			BlockSize: defaultSRNBlockSize,
		},
		Daemon: Daemon{
			Bind:             defaultDaemonBind,
			DBDriver:         defaultDBDriver,
			MinClientVersion: defaultMinClientVersion,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
