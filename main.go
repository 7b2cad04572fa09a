package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/ahellier/flexalloc/internal/config"
	"github.com/ahellier/flexalloc/internal/gui"
	"github.com/ahellier/flexalloc/internal/model"
	"github.com/ahellier/flexalloc/logging"
	"github.com/ahellier/flexalloc/sim"
	"github.com/ahellier/flexalloc/statistics"
)

var log = logging.Get()

func main() {
	config_file_path := flag.String("config_file", "", "Path to config file")
	flag.Parse()

	yamlFile, err := os.ReadFile(*config_file_path)
	if err != nil {
		log.Err(err).Msgf("could not load config")
		os.Exit(1)
	}

	if err := yaml.UnmarshalStrict(yamlFile, &config.SimulationGeneralConfig); err != nil {
		log.Err(err).Msgf("could not load config")
		os.Exit(1)
	}

	cfg := &config.SimulationGeneralConfig
	if err := cfg.Validate(); err != nil {
		log.Err(err).Msg("invalid configuration")
		os.Exit(1)
	}

	result, err := sim.Run(cfg)
	if err != nil {
		log.Err(err).Msg("simulation failed")
		os.Exit(1)
	}

	fmt.Println(statistics.Display())

	if cfg.Gui {
		bridge := sim.Bridge{
			ResultRequestStream: make(chan struct{}),
			ResultStream:        make(chan *model.Result),
		}

		go sim.Serve(bridge, result)

		gui.SetUp(bridge)
		gui.Run()
	}
}
