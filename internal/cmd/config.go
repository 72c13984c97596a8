package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gridkit/driverpool/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify driverpool configuration",
	Long: `View or modify driverpool configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  poolctl config set pool.max_driver_count 5
  poolctl config set pool.init_retry_count 2

Valid keys:
  pool.max_driver_count        - Max drivers visible to one worker's scope
  pool.init_retry_count        - Retries after a failed creation attempt
  pool.init_retry_interval_sec - Pause between creation attempts (seconds)
  pool.driver_close_timeout_sec - Bound on driver quit during teardown (seconds)
  pool.close_before_quit       - Soft-close UI surfaces before quit (true/false)
  device.connect_on_register   - Connect devices as part of RegisterDevice (true/false)
  logging.level                - Log level: debug, info, warn, error`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/driverpool/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	// Pool settings
	fmt.Println("pool:")
	fmt.Printf("  max_driver_count: %d\n", cfg.Pool.MaxDriverCount)
	fmt.Printf("  init_retry_count: %d\n", cfg.Pool.InitRetryCount)
	fmt.Printf("  init_retry_interval_sec: %d\n", cfg.Pool.InitRetryIntervalSec)
	fmt.Printf("  driver_close_timeout_sec: %d\n", cfg.Pool.DriverCloseTimeoutSec)
	fmt.Printf("  close_before_quit: %v\n", cfg.Pool.CloseBeforeQuit)

	// Device settings
	fmt.Println("device:")
	fmt.Printf("  connect_on_register: %v\n", cfg.Device.ConnectOnRegister)

	// Logging settings
	fmt.Println("logging:")
	fmt.Printf("  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Printf("  level: %s\n", cfg.Logging.Level)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"pool.max_driver_count":         "int",
		"pool.init_retry_count":         "int",
		"pool.init_retry_interval_sec":  "int",
		"pool.driver_close_timeout_sec": "int",
		"pool.close_before_quit":        "bool",
		"device.connect_on_register":    "bool",
		"logging.enabled":               "bool",
		"logging.level":                 "string",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'poolctl config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		if key == "logging.level" && !contains(config.ValidLogLevels(), strings.ToLower(value)) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidLogLevels(), ", "))
		}
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set the value in viper
	viper.Set(key, typedValue)

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'poolctl config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# driverpool configuration

# Session pool settings
pool:
  # Maximum number of drivers visible to one worker's scope
  max_driver_count: 3
  # Retries after a failed creation attempt (0 = single attempt)
  init_retry_count: 1
  # Pause between creation attempts, in seconds
  init_retry_interval_sec: 1
  # Bound on driver quit during teardown, in seconds
  driver_close_timeout_sec: 30
  # Soft-close UI surfaces before quit (workaround for leaked profiles)
  close_before_quit: false

# Physical device settings
device:
  # Connect the device as part of RegisterDevice
  connect_on_register: false

# Logging settings
logging:
  enabled: true
  # Log level: debug, info, warn, error
  level: info
  # Log directory; empty writes to stderr
  dir: ""
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(config.ConfigFile())
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return config.ValidationErrors(errs)
	}
	fmt.Println("Configuration is valid.")
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
