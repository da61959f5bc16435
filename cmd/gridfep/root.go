/*
 * root.go, part of gridfep.
 *
 * Copyright 2024 The gridfep developers.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gridfep/gridfep/batch"
	"github.com/gridfep/gridfep/result"
	"github.com/gridfep/gridfep/work"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gridfep",
	Short: "Extract work measurements and snapshots from distributed free-energy runs",
	Long: `gridfep processes the raw output of distributed non-equilibrium
free-energy simulations. For every unit (run/clone/gen) it extracts and
validates the forward and reverse switching works, summarizes them per
run, and slices one representative structural snapshot per run into its
protein, ligand and complex subsets.`,
}

//Execute runs the root command; it is the whole CLI entry point.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./gridfep.yaml)")
	rootCmd.PersistentFlags().String("project-dir", "", "directory holding RUNS/RUN{r} setup files")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding RUN{r}/CLONE{c}/results{g} unit output")
	rootCmd.PersistentFlags().String("out-dir", "out", "directory for snapshots and reports")
	rootCmd.PersistentFlags().Int("cpus", 0, "concurrent workers (0 means one per CPU)")
	rootCmd.PersistentFlags().Bool("verbose", false, "debug-level logging")
	viper.BindPFlag("project_dir", rootCmd.PersistentFlags().Lookup("project-dir"))
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("out_dir", rootCmd.PersistentFlags().Lookup("out-dir"))
	viper.BindPFlag("cpus", rootCmd.PersistentFlags().Lookup("cpus"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("gridfep")
	}

	viper.SetEnvPrefix("GRIDFEP")
	viper.AutomaticEnv()

	p := work.DefaultProtocol()
	viper.SetDefault("protocol.num_works", p.NumWorks)
	viper.SetDefault("protocol.num_steps", p.NumSteps)
	viper.SetDefault("protocol.forward_begin", p.ForwardBegin)
	viper.SetDefault("protocol.forward_end", p.ForwardEnd)
	viper.SetDefault("protocol.reverse_begin", p.ReverseBegin)
	viper.SetDefault("protocol.reverse_end", p.ReverseEnd)
	viper.SetDefault("snapshot.frame", -1)
	viper.SetDefault("snapshot.reference", "")
	viper.SetDefault("cache_dir", "")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func protocolFromConfig() *work.Protocol {
	return &work.Protocol{
		NumWorks:     viper.GetInt("protocol.num_works"),
		NumSteps:     viper.GetInt("protocol.num_steps"),
		ForwardBegin: viper.GetInt("protocol.forward_begin"),
		ForwardEnd:   viper.GetInt("protocol.forward_end"),
		ReverseBegin: viper.GetInt("protocol.reverse_begin"),
		ReverseEnd:   viper.GetInt("protocol.reverse_end"),
	}
}

func layoutFromConfig() (*result.Layout, error) {
	data := viper.GetString("data_dir")
	if data == "" {
		return nil, fmt.Errorf("data directory not set (--data-dir)")
	}
	return &result.Layout{ProjectDir: viper.GetString("project_dir"), DataDir: data}, nil
}

func optionsFromConfig() *batch.Options {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	o := batch.DefaultOptions()
	o.Cpus(viper.GetInt("cpus"))
	o.Frame(viper.GetInt("snapshot.frame"))
	o.Reference(viper.GetString("snapshot.reference"))
	o.CacheDir(viper.GetString("cache_dir"))
	o.OutDir(viper.GetString("out_dir"))
	o.Protocol(protocolFromConfig())
	o.Logger(logger)
	return o
}

func parseRuns(args []string) ([]int, error) {
	runs := make([]int, 0, len(args))
	for _, a := range args {
		r, err := strconv.Atoi(a)
		if err != nil || r < 0 {
			return nil, fmt.Errorf("not a run number: %q", a)
		}
		runs = append(runs, r)
	}
	return runs, nil
}
