// FILE: lixenwraith/properties/cmd/tprops/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/properties"
)

// defaultFile is used when no file is given or discovered
const defaultFile = "tprops.properties"

// globalOptions are shared by all subcommands
type globalOptions struct {
	file         string
	defaultsFile string
	verbose      bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "tprops",
		Short:         "Inspect and edit typed properties files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&g.file, "file", "f", "", "properties file (default: discovered as tprops.properties)")
	rootCmd.PersistentFlags().StringVar(&g.defaultsFile, "defaults", "", "read-only properties file with default values")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(
		newGetCommand(g),
		newTypeCommand(g),
		newSetCommand(g),
		newRemoveCommand(g),
		newDumpCommand(g),
		newImportCommand(g),
		newWatchCommand(g),
	)

	return rootCmd
}

// open builds a handle for the selected file. Watching is only enabled on request.
func (g *globalOptions) open(watch bool, interval time.Duration) (*properties.Persistent, error) {
	b := properties.NewBuilder()
	if g.file != "" {
		b = b.WithFile(g.file)
	} else {
		b = b.WithFile(defaultFile).
			WithFileDiscovery(properties.DefaultDiscoveryOptions("tprops"))
	}
	if g.defaultsFile != "" {
		b = b.WithDefaultsFile(g.defaultsFile)
	}
	if watch {
		b = b.WithPollInterval(interval)
	} else {
		b = b.WithoutWatch()
	}
	return b.Build()
}

func newGetCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY...",
		Short: "Print the effective value of keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pp, err := g.open(false, 0)
			if err != nil {
				return err
			}
			defer pp.Close()

			var missing []string
			for _, key := range args {
				v, ok := pp.Value(key)
				if !ok {
					missing = append(missing, key)
					continue
				}
				if t, isTable := v.(*properties.Properties); isTable {
					if err := t.Export(cmd.OutOrStdout(), properties.FormatYAML); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%v\n", key, v)
			}
			if len(missing) > 0 {
				return fmt.Errorf("no value for: %v", missing)
			}
			return nil
		},
	}
}

func newTypeCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "type KEY...",
		Short: "Print the declared type of keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pp, err := g.open(false, 0)
			if err != nil {
				return err
			}
			defer pp.Close()

			for _, key := range args {
				typ, ok := pp.Type(key)
				switch {
				case !ok:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: undefined\n", key)
				case typ == properties.ListType:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: list\n", key)
				case typ == properties.TableType:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: table\n", key)
				default:
					name, registered := pp.Registry().TypeName(typ)
					if !registered {
						name = typ.String()
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, name)
				}
			}
			return nil
		},
	}
}

func newSetCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE [KEY VALUE...]",
		Short: "Set values; VALUE may carry a type prefix such as \"int 5\"",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return errors.New("expected KEY VALUE pairs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			pp, err := g.open(false, 0)
			if err != nil {
				return err
			}
			defer pp.Close()

			return pp.Batch(func() error {
				var errs []error
				for i := 0; i < len(args); i += 2 {
					errs = append(errs, pp.SetText(args[i], args[i+1]))
				}
				return errors.Join(errs...)
			})
		},
	}
}

func newRemoveCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove KEY...",
		Aliases: []string{"rm"},
		Short:   "Remove local values, exposing defaults",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pp, err := g.open(false, 0)
			if err != nil {
				return err
			}
			defer pp.Close()

			return pp.Batch(func() error {
				var errs []error
				for _, key := range args {
					errs = append(errs, pp.Remove(key))
				}
				return errors.Join(errs...)
			})
		},
	}
}

func newDumpCommand(g *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the effective properties to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pp, err := g.open(false, 0)
			if err != nil {
				return err
			}
			defer pp.Close()
			return pp.Export(cmd.OutOrStdout(), format)
		},
	}
	cmd.Flags().StringVar(&format, "format", properties.FormatYAML, "output format: toml, yaml, json or flat")
	return cmd
}

func newImportCommand(g *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import SOURCE",
		Short: "Merge values from a toml, yaml, json or flat file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = properties.FormatFromPath(args[0])
			}
			src, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open '%s': %w", args[0], err)
			}
			defer src.Close()

			pp, err := g.open(false, 0)
			if err != nil {
				return err
			}
			defer pp.Close()
			return pp.Import(src, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "input format (default: from extension)")
	return cmd
}

func newWatchCommand(g *globalOptions) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print keys as other processes change them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pp, err := g.open(true, interval)
			if err != nil {
				return err
			}
			defer pp.Close()

			// Context for graceful shutdown
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			changes := pp.Watch()
			logrus.WithField("file", pp.File()).Info("watching for changes, press Ctrl+C to exit")
			for {
				select {
				case <-ctx.Done():
					return nil
				case key, ok := <-changes:
					if !ok {
						return nil
					}
					printChange(cmd, pp, key)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "poll interval")
	return cmd
}

func printChange(cmd *cobra.Command, pp *properties.Persistent, key string) {
	switch {
	case key == "file_deleted":
		logrus.Warn("properties file was deleted")
	case strings.HasPrefix(key, "reload_error:"):
		logrus.Warn(strings.TrimPrefix(key, "reload_error:"))
	default:
		if v, ok := pp.Value(key); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%v\n", key, v)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s removed\n", key)
		}
	}
}
