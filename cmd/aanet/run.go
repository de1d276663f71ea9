package main

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skymesh/aanet"
)

var (
	cfgFile     string
	seed        uint64
	duration    float64
	metricsFile string
	traceFile   string
)

// runCmd executes one simulation run from a configuration file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation experiment",
	RunE: func(cmd *cobra.Command, args []string) error {
		// a .env file, when present, supplies the environment overrides
		godotenv.Load()

		ext := path.Ext(cfgFile)
		useYAML := (ext == ".yaml") || (ext == ".yml")
		scfg, err := aanet.ReadSimCfg(cfgFile, useYAML, []byte{})
		if err != nil {
			return fmt.Errorf("configuration: %w", err)
		}

		// flag beats env var beats file
		if v, present := os.LookupEnv("AANET_SEED"); present {
			s, perr := strconv.ParseUint(v, 10, 64)
			if perr != nil {
				return fmt.Errorf("AANET_SEED: %w", perr)
			}
			scfg.Seed = s
		}
		if v, present := os.LookupEnv("AANET_DURATION"); present {
			d, perr := strconv.ParseFloat(v, 64)
			if perr != nil {
				return fmt.Errorf("AANET_DURATION: %w", perr)
			}
			scfg.SimTime = d
		}
		if cmd.Flags().Changed("seed") {
			scfg.Seed = seed
		}
		if cmd.Flags().Changed("duration") {
			scfg.SimTime = duration
		}

		sim, err := aanet.CreateSimulator(scfg)
		if err != nil {
			return fmt.Errorf("configuration: %w", err)
		}

		summary := sim.Run()

		if metricsFile != "" {
			sim.Metrics.WriteToFile(metricsFile)
		}
		if traceFile != "" {
			sim.TraceMgr.WriteToFile(traceFile)
		}

		out, merr := yaml.Marshal(summary)
		if merr != nil {
			return merr
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "experiment configuration file (yaml or json)")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "master seed for every random stream")
	runCmd.Flags().Float64Var(&duration, "duration", 0.0, "virtual run time in seconds")
	runCmd.Flags().StringVar(&metricsFile, "metrics", "", "write the metrics stream to this file")
	runCmd.Flags().StringVar(&traceFile, "trace", "", "write the packet trace to this file")
	runCmd.MarkFlagRequired("config")
}
