package backend

import (
	"fmt"

	"verkoop/internal/config"
)

// FromAppConfig converts the application config to the config of the
// backend that serves the dashboard.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	return fromAppConfig(appConfig, appConfig.DataBackend)
}

// ImportFromAppConfig returns the config of the remote source that feeds
// the sqlite snapshot.
func ImportFromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	cfg, err := fromAppConfig(appConfig, appConfig.ImportBackend)
	if err != nil {
		return Config{}, err
	}
	if cfg.Type == SQLiteBackend {
		return Config{}, fmt.Errorf("import backend cannot be %s", SQLiteBackend)
	}
	return cfg, nil
}

func fromAppConfig(appConfig *config.Config, backend string) (Config, error) {
	backendType := BackendType(backend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", backend)
	}

	return Config{
		Type: backendType,

		RecordsFile:  appConfig.RecordsFile,
		ExcelFile:    appConfig.ExcelFile,
		SQLiteDBPath: appConfig.SQLiteDBPath,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		SheetTabs:                appConfig.SheetTabs,
		FetchTimeout:             appConfig.FetchTimeout,

		DemoYear: config.DefaultYear,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case FileBackend:
		if c.RecordsFile == "" {
			return fmt.Errorf("records file is required for file backend")
		}
	case ExcelBackend:
		if c.ExcelFile == "" {
			return fmt.Errorf("Excel file is required for excel backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case SheetsBackend, GvizBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for %s backend", c.Type)
		}
		if len(c.SheetTabs) == 0 {
			return fmt.Errorf("at least one sheet tab is required for %s backend", c.Type)
		}
	case MemoryBackend:
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{FileBackend, SheetsBackend, GvizBackend, ExcelBackend, SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
