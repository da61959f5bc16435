/*
 * works.go, part of gridfep.
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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gridfep/gridfep/batch"
)

var worksCmd = &cobra.Command{
	Use:   "works RUN [RUN...]",
	Short: "Extract and validate per-unit works for the given runs",
	Long: `Extract the forward and reverse switching works of every unit of
the given runs, validate them against the expected protocol, and write a
per-run summary report (works.json in the output directory). Units that
fail validation are reported and skipped.

Examples:
  gridfep works --data-dir /data 0 1 2
  gridfep works --data-dir /data --cpus 8 17`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWorks,
}

func init() {
	rootCmd.AddCommand(worksCmd)
}

func runWorks(cmd *cobra.Command, args []string) error {
	runs, err := parseRuns(args)
	if err != nil {
		return err
	}
	layout, err := layoutFromConfig()
	if err != nil {
		return err
	}
	o := optionsFromConfig()
	o.Reference("") //works only, no snapshots
	summaries := batch.ProcessRuns(layout, runs, o)
	if len(summaries) == 0 {
		return fmt.Errorf("no run could be processed")
	}
	report := filepath.Join(o.OutDir(), "works.json")
	if err := batch.WriteReport(report, summaries); err != nil {
		return err
	}
	fmt.Println("report written to", report)
	return nil
}
