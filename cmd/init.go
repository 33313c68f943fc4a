package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// defaultConfig mirrors the config file layout with every supported key set
// to its built-in default.
type defaultConfig struct {
	Version int    `yaml:"version"`
	Output  string `yaml:"output"`
	Run     struct {
		Runner   string `yaml:"runner"`
		FailFast bool   `yaml:"fail_fast"`
		Progress bool   `yaml:"progress"`
	} `yaml:"run"`
	Log struct {
		Filename   string `yaml:"filename"`
		Level      string `yaml:"level"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
}

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a default testchanged.yaml configuration file",
		Long: `Create a testchanged.yaml in the current working directory populated with
the current CLI defaults so it can be edited manually.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			if _, err := os.Stat(targetPath); err == nil {
				return fmt.Errorf("config file %s already exists", targetPath)
			}

			data, err := yaml.Marshal(builtinDefaults())
			if err != nil {
				return fmt.Errorf("failed to encode default config: %w", err)
			}

			if err := os.WriteFile(targetPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			cmd.Println("wrote", targetPath)

			return nil
		},
	}
}

func builtinDefaults() defaultConfig {
	cfg := defaultConfig{
		Version: currentConfigVersion,
		Output:  defaultReportsDir,
	}

	cfg.Run.Runner = defaultRunner
	cfg.Run.FailFast = defaultFailFast
	cfg.Run.Progress = defaultProgress

	cfg.Log.Filename = defaultLogFilename
	cfg.Log.Level = "info"
	cfg.Log.MaxSize = defaultLogMaxSize
	cfg.Log.MaxBackups = defaultLogMaxBackups
	cfg.Log.MaxAge = defaultLogMaxAge
	cfg.Log.Compress = defaultLogCompress

	return cfg
}

func init() {
	rootCmd.AddCommand(initCmd)
}
