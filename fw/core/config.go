package core

import (
	"os"
	"strconv"
)

// PconConfig carries the §6 tunables for the PCON strategy, each
// overridable by an environment variable the same way the ndnSIM original
// reads them through StrHelper::getEnvVariable.
type PconConfig struct {
	InitShortestPath  bool    `yaml:"init_shortest_path"`
	ChangePerMark     float64 `yaml:"change_per_mark"`
	ProbingPercentage float64 `yaml:"probing_percentage"`
	MinRto            float64 `yaml:"min_rto"`
}

// QueueConfig describes the per-face outbound queue. Only SizePkts is used:
// every face gets the CoDel-marking Queue with its default target delay and
// interval. Type, TargetDelay and Interval are read from YAML or the
// environment but do not select a different queue class or timing.
type QueueConfig struct {
	Type         string `yaml:"type"` // "fifo", "codel", or "pcon"
	SizePkts     int    `yaml:"size_pkts"`
	TargetDelay  int    `yaml:"target_delay_ms"`
	Interval     int    `yaml:"interval_ms"`
}

// Config is the top-level, YAML-decoded configuration for a running
// forwarder, read with std/utils/toolutils.ReadYaml.
type Config struct {
	Core struct {
		RouterName   string `yaml:"router_name"`
		Log          string `yaml:"log_level"`
		BaseDir      string `yaml:"-"`
		CpuProfile   string `yaml:"-"`
		MemProfile   string `yaml:"-"`
		BlockProfile string `yaml:"-"`
	} `yaml:"core"`

	Strategy struct {
		Pcon PconConfig `yaml:"pcon"`
	} `yaml:"strategy"`

	Face struct {
		Listen string `yaml:"listen"`
	} `yaml:"face"`

	Queue QueueConfig `yaml:"queue"`

	Trace struct {
		Enabled  bool   `yaml:"enabled"`
		File     string `yaml:"file"`
		Badger   string `yaml:"badger_dir"`
	} `yaml:"trace"`
}

// DefaultConfig returns a Config populated with the defaults named in the
// PCON tunables table, each still overridable by its environment variable
// or by the YAML file read on top of it.
func DefaultConfig() *Config {
	c := &Config{}
	c.Core.RouterName = "router0"
	c.Core.Log = "INFO"
	c.Face.Listen = ":6363"
	c.Strategy.Pcon = PconConfig{
		InitShortestPath:  true,
		ChangePerMark:     0.02,
		ProbingPercentage: 0.001,
		MinRto:            0.2,
	}
	c.Queue = QueueConfig{
		Type:        "pcon",
		SizePkts:    200,
		TargetDelay: 5,
		Interval:    100,
	}
	c.Trace.File = "results/fwperc.txt"
	c.applyEnv()
	return c
}

// applyEnv overlays PCON tunables from the environment, mirroring the
// original's getEnvVariable helper so a deployment can tune PCON without
// editing the config file.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("INIT_SHORTEST_PATH"); ok {
		c.Strategy.Pcon.InitShortestPath = v == "1" || v == "true"
	}
	if v, ok := os.LookupEnv("CHANGE_PER_MARK"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Strategy.Pcon.ChangePerMark = f
		}
	}
	if v, ok := os.LookupEnv("PROBING_PERCENTAGE"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Strategy.Pcon.ProbingPercentage = f
		}
	}
	if v, ok := os.LookupEnv("MIN_RTO"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Strategy.Pcon.MinRto = f
		}
	}
	if v, ok := os.LookupEnv("QUEUE_TYPE"); ok {
		c.Queue.Type = v
	}
	if v, ok := os.LookupEnv("QUEUE_SIZE_PKTS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Queue.SizePkts = n
		}
	}
}
