// Package cli implements waitlistctl, the operator CLI for the waitlist API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seekkrr/landingpage/pkg/waitlist"
)

const (
	envPrefix      = "WAITLISTCTL"
	defaultAPIURL  = "http://localhost:5000"
	defaultTimeout = 15 * time.Second
)

// NewRootCommand builds the command tree. Each call returns a fresh tree
// bound to its own viper instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "waitlistctl",
		Short:         "Manage the SeekKrr waitlist",
		Long:          "Command-line access to the SeekKrr interest API: health, listing and CSV export.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seekkrr/waitlistctl.yaml)")
	flags.String("api-url", defaultAPIURL, "interest API base URL")
	flags.String("token", "", "admin token")
	flags.Duration("timeout", defaultTimeout, "request timeout")
	flags.StringP("output", "o", "table", "output format (table, json, yaml)")

	for _, name := range []string{"api-url", "token", "timeout", "output"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newHealthCmd(v),
		newListCmd(v),
		newExportCmd(v),
	)
	return root
}

// Execute runs the CLI against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(filepath.Join(home, ".seekkrr"))
		v.SetConfigName("waitlistctl")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func newClient(v *viper.Viper) *waitlist.Client {
	return waitlist.NewClient(v.GetString("api-url"), v.GetDuration("timeout")).
		SetAdminToken(v.GetString("token"))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
