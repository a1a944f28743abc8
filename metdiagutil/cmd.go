/*
Copyright © 2024 the metdiag authors.
This file is part of metdiag.

metdiag is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

metdiag is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with metdiag.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package metdiagutil contains the command-line interface, configuration,
// and batch driver for metdiag.
package metdiagutil

import (
	"context"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/metdiag"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	def := metdiag.DefaultConfig()

	// Options are the configuration options available to metdiag.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "loglevel",
			usage: `
              loglevel specifies the minimum level of log messages to
              print: debug, info, warn, or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "north",
			usage: `
              north specifies the northern edge of the region of interest,
              in degrees latitude.`,
			defaultVal: def.North,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "south",
			usage: `
              south specifies the southern edge of the region of interest,
              in degrees latitude.`,
			defaultVal: def.South,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "east",
			usage: `
              east specifies the eastern edge of the region of interest,
              in degrees east. Longitudes west of the prime meridian are
              negative.`,
			defaultVal: def.East,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "west",
			usage: `
              west specifies the western edge of the region of interest,
              in degrees east.`,
			defaultVal: def.West,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "target_level",
			usage: `
              target_level specifies the pressure level [hPa] at which
              equivalent potential temperature and its gradient are
              calculated.`,
			defaultVal: def.TargetLevel,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "level_band",
			usage: `
              level_band specifies the minimum and maximum pressure [hPa]
              of the column integrated to calculate vapor transport.`,
			defaultVal: []string{"300", "1000"},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "input_files",
			usage: `
              input_files specifies the reanalysis files to process. Files
              given as arguments to the run command are used instead, if
              there are any. Environment variables are expanded.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "output_dir",
			usage: `
              output_dir specifies the directory where result files are
              written. It is created if it does not exist.`,
			shorthand:  "o",
			defaultVal: "merra2_sliced",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "output_suffix",
			usage: `
              output_suffix is appended to the base name of each input file
              to name its result file.`,
			defaultVal: "_sliced",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "workers",
			usage: `
              workers specifies the number of time steps to compute at once.
              Zero means the number of processors.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "metrics_file",
			usage: `
              metrics_file, if set, specifies a file where run metrics are
              written in the Prometheus text format.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("METDIAG")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the log level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("metdiag: problem reading configuration file: %v", err)
		}
	}
	lvl, err := logrus.ParseLevel(Cfg.GetString("loglevel"))
	if err != nil {
		return fmt.Errorf("metdiag: invalid loglevel: %v", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "metdiag",
	Short: "Moisture transport and frontal diagnostics from reanalysis data.",
	Long: `metdiag calculates integrated water vapor transport (IVT) and the
horizontal gradient of equivalent potential temperature from MERRA-2
pressure-level reanalysis files.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'METDIAG_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of metdiag.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("metdiag v%s\n", metdiag.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that calculates diagnostics for a set of files.
var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Calculate diagnostics.",
	Long: `run calculates sea level pressure, integrated vapor transport, and the
equivalent potential temperature gradient for each input file and saves
the results in the output directory, one file per input file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := DiagConfig(Cfg)
		if err != nil {
			return err
		}
		files := args
		if len(files) == 0 {
			files = expandStringSlice(Cfg.GetStringSlice("input_files"))
		}
		if len(files) == 0 {
			return fmt.Errorf("metdiag: no input files; pass them as arguments or set input_files")
		}
		cfg.Log = logrus.StandardLogger()
		metricsFile := os.ExpandEnv(Cfg.GetString("metrics_file"))
		if metricsFile != "" {
			cfg.Metrics = metdiag.NewMetrics()
		}
		runErr := Run(context.Background(), cfg, files,
			os.ExpandEnv(Cfg.GetString("output_dir")), Cfg.GetString("output_suffix"))
		if err := cfg.Metrics.WriteTextfile(metricsFile); err != nil {
			cfg.Log.WithError(err).Error("metdiag: writing metrics")
		}
		return runErr
	},
	DisableAutoGenTag: true,
}
