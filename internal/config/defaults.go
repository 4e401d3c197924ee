package config

const (
	defaultConfigPath     = "~/.config/yoloprep/config.toml"
	projectConfigName     = "yoloprep.toml"
	journalFileName       = "journal.db"
	defaultWorkDir        = "~/.cache/yoloprep/work"
	defaultStateDir       = "~/.local/share/yoloprep"
	defaultLogDir         = "~/.local/share/yoloprep/logs"
	defaultBackend        = BackendAzure
	defaultContainer      = "images"
	defaultTimeoutSeconds = 300
	defaultDatasetDir     = "dataset"
	defaultMappingFile    = "image_mapping.json"
	defaultSelectionFile  = "to_train_combined.txt"
	defaultValidSplit     = 0.1
	defaultRandomSeed     = 42
	defaultImageExt       = "jpeg"
	defaultArchiveBaseDir = "obj_train_data"
	defaultClassNamesFile = "obj.names"
	defaultEmptyTag       = "brak reklam"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Store backends.
const (
	BackendAzure = "azure"
	BackendGCS   = "gcs"
	BackendLocal = "local"
)

const (
	envAzureConnectionString = "AZURE_STORAGE_CONNECTION_STRING"
	envGoogleCredentials     = "GOOGLE_APPLICATION_CREDENTIALS"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Store: Store{
			Backend:        defaultBackend,
			Container:      defaultContainer,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Dataset: Dataset{
			Dir:            defaultDatasetDir,
			MappingFile:    defaultMappingFile,
			SelectionFile:  defaultSelectionFile,
			ValidSplit:     defaultValidSplit,
			RandomSeed:     defaultRandomSeed,
			ImageExt:       defaultImageExt,
			ArchiveBaseDir: defaultArchiveBaseDir,
			ClassNamesFile: defaultClassNamesFile,
			EmptyTag:       defaultEmptyTag,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Journal: Journal{
			Enabled: true,
		},
	}
}
