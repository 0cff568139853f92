// FILE: lixenwraith/strata/cmd/strata/main.go

// Package main provides the strata command, which resolves, converts and
// documents layered configuration from the shell.
//
// Usage:
//
//	strata resolve DEFINITIONS [VALUE_FILE...] [-- --a.b=value ...]
//	strata convert DEFINITIONS INPUT OUTPUT
//	strata help DEFINITIONS
package main

import (
	"fmt"
	"os"

	"github.com/lixenwraith/strata"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose       bool
	strict        bool
	useEnv        bool
	exposeSecrets bool
	outputFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Layered configuration resolver",
	Long: `Resolve configuration from definitions and ordered value sources.

Definitions may be JSON text, definition files (json, yaml, ini) or module
files (.py). Value sources are applied in order: the environment, value files
as given, then options after "--".`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve DEFINITIONS [VALUE_FILE...] [-- OPTIONS...]",
	Short: "Resolve and print the configuration",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, options := splitAtDash(cmd, args[1:])

		b := newBuilder(args[0])
		if useEnv {
			b.WithEnv()
		}
		for _, f := range files {
			b.WithFile(f)
		}
		b.WithArgs(options)

		cfg, err := b.Build()
		if err != nil {
			return err
		}
		done, err := cfg.HandleAdmin(cmd.OutOrStdout())
		if err != nil || done {
			return err
		}
		return cfg.Write(cmd.OutOrStdout(), strata.Format(outputFormat))
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert DEFINITIONS INPUT OUTPUT",
	Short: "Read INPUT as values and write OUTPUT in the format of its extension",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := newBuilder(args[0]).WithFile(args[1]).Build()
		if err != nil {
			return err
		}
		return cfg.Save(args[2])
	},
}

var helpCmd = &cobra.Command{
	Use:   "help [DEFINITIONS | COMMAND]",
	Short: "List the options of a definition source, or help for a command",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return rootCmd.Help()
		}
		if sub, _, err := rootCmd.Find(args); err == nil && sub != rootCmd {
			return sub.Help()
		}
		return newBuilder(args[0]).Usage(cmd.OutOrStdout())
	},
}

func newBuilder(definitions string) *strata.Builder {
	return strata.NewBuilder().
		WithDefinitions(definitions).
		WithStrict(strict).
		WithExposeSecrets(exposeSecrets).
		WithLogger(newLogger())
}

func newLogger() *zap.Logger {
	if !verbose && os.Getenv("STRATA_VERBOSE") == "" {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// splitAtDash separates value files from the options following "--".
func splitAtDash(cmd *cobra.Command, rest []string) ([]string, []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return rest, nil
	}
	// ArgsLenAtDash counts DEFINITIONS as well
	dash--
	if dash < 0 {
		dash = 0
	}
	return rest[:dash], rest[dash:]
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Log resolution details to stderr")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Fail on keys that match no option")
	rootCmd.PersistentFlags().BoolVar(&exposeSecrets, "expose-secrets", false, "Write secret options unmasked")

	resolveCmd.Flags().BoolVar(&useEnv, "env", true, "Read values from the environment")
	resolveCmd.Flags().StringVarP(&outputFormat, "output", "o", string(strata.FormatConf), "Output format (conf, ini, json, yaml, toml, py, env)")

	rootCmd.AddCommand(resolveCmd, convertCmd)
	rootCmd.SetHelpCommand(helpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "strata: %v\n", err)
		if strata.IsUsageError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
