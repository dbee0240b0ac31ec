package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-agg/internal/aggregate"
	"github.com/inodb/vibe-agg/internal/dispatch"
	"github.com/inodb/vibe-agg/internal/region"
)

const (
	configBaseName = ".vibe-agg"
	envPrefix      = "VIBE_AGG"

	searchBackendKey = "search.backend"
	esURLKey         = "elasticsearch.url"
	esUsernameKey    = "elasticsearch.username"
	esPasswordKey    = "elasticsearch.password"
	esMaxRetriesKey  = "elasticsearch.max_retries"
	duckdbPathKey    = "duckdb.path"

	cacheEnabledKey = "cache.enabled"
	cacheBackendKey = "cache.backend"
	cachePathKey    = "cache.path"

	maxVariantsKey = "limits.max_variants"
	pageSizeKey    = "limits.page_size"
	workersKey     = "limits.workers"
	paddingKey     = "region.padding"

	logLevelKey      = "log.level"
	logFormatKey     = "log.format"
	logFileKey       = "log.file"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"

	backendElasticsearch = "elasticsearch"
	backendDuckDB        = "duckdb"
	backendMemory        = "memory"
)

// setDefaults registers the default of every config key.
func setDefaults(v *viper.Viper) {
	v.SetDefault(searchBackendKey, backendDuckDB)
	v.SetDefault(esURLKey, "http://localhost:9200")
	v.SetDefault(esMaxRetriesKey, 5)
	v.SetDefault(duckdbPathKey, defaultDataPath("vibe-agg.duckdb"))

	v.SetDefault(cacheEnabledKey, false)
	v.SetDefault(cacheBackendKey, backendMemory)
	v.SetDefault(cachePathKey, defaultDataPath("cache.duckdb"))

	v.SetDefault(maxVariantsKey, aggregate.DefaultMaxVariants)
	v.SetDefault(pageSizeKey, dispatch.DefaultPageSize)
	v.SetDefault(workersKey, 0)
	v.SetDefault(paddingKey, region.DefaultPadding)

	v.SetDefault(logLevelKey, "info")
	v.SetDefault(logFormatKey, "console")
	v.SetDefault(logFileKey, "")
	v.SetDefault(logMaxSizeKey, 10)
	v.SetDefault(logMaxBackupsKey, 3)
	v.SetDefault(logMaxAgeKey, 28)
}

// defaultDataPath returns a path under ~/.vibe-agg.
func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".vibe-agg", name)
	}
	return filepath.Join(home, ".vibe-agg", name)
}

// initConfig reads the config file and binds the environment. A missing
// config file is not an error.
func initConfig(v *viper.Viper, cfgFile string) error {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(configBaseName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if cfgFile == "" && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// bindFlag wires a flag to a config key so config and env values feed it.
func bindFlag(v *viper.Viper, flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}
	cobra.CheckErr(v.BindPFlag(key, flag))
}

// serviceConfig builds the aggregate service config from v.
func serviceConfig(v *viper.Viper) aggregate.Config {
	return aggregate.Config{
		Padding:     v.GetInt64(paddingKey),
		MaxVariants: v.GetInt(maxVariantsKey),
		PageSize:    v.GetInt(pageSizeKey),
		Workers:     v.GetInt(workersKey),
	}
}

func newConfigCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-agg configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.vibe-agg.yaml.",
		Example: `  vibe-agg config                                  # show all config
  vibe-agg config set search.backend elasticsearch  # query Elasticsearch
  vibe-agg config get limits.max_variants           # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(app)
		},
	}

	cmd.AddCommand(newConfigSetCmd(app))
	cmd.AddCommand(newConfigGetCmd(app))

	return cmd
}

func newConfigSetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(app, args[0], args[1])
		},
	}
}

func newConfigGetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(app, args[0])
		},
	}
}

func runConfigShow(app *app) error {
	settings := app.v.AllSettings()
	if len(settings) == 0 {
		fmt.Fprintln(app.stdout, "# No configuration set. Config file: ~/.vibe-agg.yaml")
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(app.stdout, string(out))
	return nil
}

func runConfigSet(app *app, key, value string) error {
	// Parse boolean-like values
	switch value {
	case "true", "yes", "on":
		app.v.Set(key, true)
	case "false", "no", "off":
		app.v.Set(key, false)
	default:
		app.v.Set(key, value)
	}

	// Ensure config file exists
	cfgFile := app.v.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configBaseName+".yaml")
	}

	if err := app.v.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(app.stdout, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(app *app, key string) error {
	val := app.v.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(app.stdout, val)
	return nil
}
