package config

import "fmt"

type GeneralConfig struct {
	Name string `yaml:"name"`

	// Algorithm is one of "greedy", "auction" or "critical".
	Algorithm          string `yaml:"algorithm"`
	TaskPriority       string `yaml:"task_priority"`
	ServerSelection    string `yaml:"server_selection"`
	ResourceAllocation string `yaml:"resource_allocation"`

	// Online batching, ignored when time_steps is zero.
	Online      bool `yaml:"online"`
	TimeSteps   int  `yaml:"time_steps"`
	BatchLength int  `yaml:"batch_length"`

	// Auction heuristics applied to every server before a run.
	PriceChange    float64 `yaml:"price_change"`
	InitialPrice   float64 `yaml:"initial_price"`
	AuctionLimitMs int     `yaml:"auction_limit_ms"`
	MaximiseSelect bool    `yaml:"maximise_selection"`

	// Model source, either a literal model file or a distribution file
	// with entity counts.
	ModelFile        string `yaml:"model_file"`
	DistributionFile string `yaml:"distribution_file"`
	NumTasks         int    `yaml:"num_tasks"`
	NumServers       int    `yaml:"num_servers"`
	Seed             int64  `yaml:"seed"`

	ReportFile string `yaml:"report_file"`
	Gui        bool   `yaml:"gui"`
}

var SimulationGeneralConfig GeneralConfig

func (c *GeneralConfig) Validate() error {
	if c.Algorithm != "greedy" && c.Algorithm != "auction" && c.Algorithm != "critical" {
		return fmt.Errorf("unknown algorithm %q", c.Algorithm)
	}
	if c.Online {
		if c.TimeSteps <= 0 {
			return fmt.Errorf("online runs need positive time_steps, got %d", c.TimeSteps)
		}
		if c.BatchLength <= 0 {
			return fmt.Errorf("online runs need positive batch_length, got %d", c.BatchLength)
		}
	}
	if c.Algorithm == "auction" && c.PriceChange <= 0 {
		return fmt.Errorf("auction needs positive price_change, got %f", c.PriceChange)
	}
	if c.ModelFile == "" && c.DistributionFile == "" {
		return fmt.Errorf("either model_file or distribution_file must be set")
	}
	if c.DistributionFile != "" && (c.NumTasks <= 0 || c.NumServers <= 0) {
		return fmt.Errorf("distribution models need positive num_tasks and num_servers")
	}
	return nil
}
