// Package cli implements the cobra commands of vaultctl.
//
// The demo command works on an in-process vault; every other command talks
// to a running vault server through internal/client.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/vyrodovalexey/vault-inventory/internal/client"
	"github.com/vyrodovalexey/vault-inventory/internal/vault"
)

// Config keys and defaults.
const (
	cfgKeyServer  = "server"
	cfgKeyAPIKey  = "api_key"
	cfgKeyTimeout = "timeout"

	defaultServer = "http://localhost:8080"

	configFileName = "vaultctl"
	configFileType = "yaml"
	envPrefix      = "VAULTCTL"
)

// Exit codes returned by Execute.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitNotFound = 2
)

// Version is set from main at build time.
var Version = "dev"

// options holds state shared by the subcommands of one root command.
type options struct {
	configFile string
	jsonOutput bool
	config     *viper.Viper
}

// NewRootCommand builds the vaultctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "vaultctl",
		Short: "Inspect and manage a vault inventory",
		Long: `vaultctl lists, values and manages the items held in a vault server.

Connection settings are read from flags, VAULTCTL_* environment variables
and a vaultctl.yaml file in the working directory or ~/.config/vaultctl.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			opts.config = cfg
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default: ./vaultctl.yaml or ~/.config/vaultctl/vaultctl.yaml)")
	flags.String("server", defaultServer, "vault server URL")
	flags.String("api-key", "", "API key sent in the X-API-Key header")
	flags.Duration("timeout", client.DefaultTimeout, "per-request timeout")
	flags.BoolVar(&opts.jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(newDemoCommand())
	rootCmd.AddCommand(newListCommand(opts))
	rootCmd.AddCommand(newGetCommand(opts))
	rootCmd.AddCommand(newAddCommand(opts))
	rootCmd.AddCommand(newRevalueCommand(opts))
	rootCmd.AddCommand(newRemoveCommand(opts))
	rootCmd.AddCommand(newTotalCommand(opts))
	rootCmd.AddCommand(newRenderCommand(opts))

	return rootCmd
}

// Execute runs the command and prints any error to stderr. Vault errors are
// printed as "<name>:\t<message>". It returns the process exit code.
func Execute(rootCmd *cobra.Command) int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}

	asJSON, _ := rootCmd.PersistentFlags().GetBool("json")
	printError(rootCmd.ErrOrStderr(), err, asJSON)

	if errors.Is(err, vault.ErrNotFound) {
		return ExitNotFound
	}
	return ExitError
}

// loadConfig layers defaults, the config file, VAULTCTL_* environment
// variables and explicitly set flags, in increasing priority. A missing
// default config file is not an error; a missing explicit one is.
func loadConfig(configFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyServer, defaultServer)
	v.SetDefault(cfgKeyTimeout, client.DefaultTimeout)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		cfgKeyServer:  "server",
		cfgKeyAPIKey:  "api-key",
		cfgKeyTimeout: "timeout",
	}
	for key, flag := range bindings {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "vaultctl"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// newClient builds an API client from the loaded configuration.
func (o *options) newClient() (*client.Client, error) {
	timeout := durationOrDefault(o.config.GetDuration(cfgKeyTimeout), client.DefaultTimeout)

	c, err := client.New(
		o.config.GetString(cfgKeyServer),
		client.WithAPIKey(o.config.GetString(cfgKeyAPIKey)),
		client.WithTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return c, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printError writes err as text or as a JSON object.
func printError(w io.Writer, err error, asJSON bool) {
	name := vault.ErrorName(err)

	var notFound *vault.NotFoundError
	var duplicate *vault.DuplicateIDError
	message := err.Error()
	switch {
	case errors.As(err, &notFound):
		message = notFound.Error()
	case errors.As(err, &duplicate):
		message = duplicate.Error()
	}

	if asJSON {
		body := map[string]string{"message": message}
		if name != "" {
			body["name"] = name
		}
		_ = writeJSON(w, map[string]any{"error": body})
		return
	}

	if name != "" {
		fmt.Fprintf(w, "%s:\t%s\n", name, message)
		return
	}
	fmt.Fprintf(w, "Error: %s\n", message)
}

// durationOrDefault returns def when d is not positive.
func durationOrDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
