// Package config loads the planner's engine and search parameters from
// a YAML file in two stages: viper reads the outer file into an
// {kind, def} envelope,
// and the `def` blob (an untyped interface{} after viper's decode) is
// re-marshalled to YAML bytes and unmarshalled again into a concrete
// struct. A nested engine-spec grammar becomes a config file of the
// same logical shape, recursively for the IDS initializer's own option block.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"rddlplanner/internal/planerr"
	"rddlplanner/internal/search"
)

// OuterConfig is the file envelope: a kind selector plus an untyped
// options blob.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// PlannerConfig is the inner, concrete planner configuration.
type PlannerConfig struct {
	RAMThresholdMiB int `yaml:"ramThresholdMiB"`

	Search      SearchConfig      `yaml:"search"`
	Initializer EngineSpec        `yaml:"initializer"`
	TrainingSet TrainingSetConfig `yaml:"trainingSet"`
}

// SearchConfig mirrors search.Config's tunables in YAML-friendly form
// (durations and the timeout-policy enum as strings).
type SearchConfig struct {
	PoolCapacity     int     `yaml:"poolCapacity"`
	NearCapacity     int     `yaml:"nearCapacity"`
	UCBScale         float64 `yaml:"ucbScale"`
	NumInitialVisits int     `yaml:"numInitialVisits"`

	NoopOptimalFinalAction bool `yaml:"noopOptimalFinalAction"`

	// TimeoutPolicy is one of "TIME", "ROLLOUTS", "TIME_AND_ROLLOUTS".
	TimeoutPolicy string `yaml:"timeoutPolicy"`
	TimeoutMillis int    `yaml:"timeoutMillis"`
	MaxRollouts   int    `yaml:"maxRollouts"`
}

// EngineSpec is the nested {kind, def} shape for the decision-node
// initializer (IDS or Random), the same envelope shape
// as OuterConfig one level down.
type EngineSpec struct {
	Kind string      `yaml:"kind"`
	Def  interface{} `yaml:"def"`
}

// IDSConfig is the IDS initializer's own option block, decoded from
// EngineSpec.Def when EngineSpec.Kind == "ids".
type IDSConfig struct {
	StepTimeoutMillis             int  `yaml:"stepTimeoutMillis"`
	TerminateWithReasonableAction bool `yaml:"terminateWithReasonableAction"`
}

// TrainingSetConfig exposes the training-set generator's inclusion
// probability, target size and wall-clock budget as overridable fields
// rather than literals.
type TrainingSetConfig struct {
	TargetSize           int     `yaml:"targetSize"`
	InclusionProbability float64 `yaml:"inclusionProbability"`
	BudgetMillis          int     `yaml:"budgetMillis"`
}

// Default returns the stated defaults in config form.
func Default() *PlannerConfig {
	return &PlannerConfig{
		RAMThresholdMiB: 2560,
		Search: SearchConfig{
			PoolCapacity:           search.DefaultPoolCapacity,
			NearCapacity:           search.DefaultNearCapacityThreshold,
			UCBScale:               search.DefaultUCBScale,
			NumInitialVisits:       5,
			NoopOptimalFinalAction: true,
			TimeoutPolicy:          "TIME_AND_ROLLOUTS",
			TimeoutMillis:          1000,
			MaxRollouts:            100_000,
		},
		Initializer: EngineSpec{
			Kind: "ids",
			Def: map[string]interface{}{
				"stepTimeoutMillis":             5,
				"terminateWithReasonableAction": true,
			},
		},
		TrainingSet: TrainingSetConfig{
			TargetSize:            search.DefaultTrainingSetTargetSize,
			InclusionProbability:  search.DefaultTrainingSetInclusionProb,
			BudgetMillis:          int(search.DefaultTrainingSetBudget / time.Millisecond),
		},
	}
}

// FromYaml loads and decodes path in two stages: viper reads the outer
// {kind, def} file,
// then Def is re-marshalled to YAML and unmarshalled into PlannerConfig.
func FromYaml(path string) (*PlannerConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, planerr.Wrap(planerr.KindParse, path, err)
	}

	outer := &OuterConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, planerr.Wrap(planerr.KindParse, path, err)
	}

	spec, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, planerr.Wrap(planerr.KindParse, path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(spec, cfg); err != nil {
		return nil, planerr.Wrap(planerr.KindParse, path, err)
	}
	return cfg, nil
}

// DecodeIDS decodes the initializer block's option map into an
// IDSConfig, the same re-marshal step FromYaml applies at the outer
// level, applied again one level down.
func (c *PlannerConfig) DecodeIDS() (*IDSConfig, error) {
	if c.Initializer.Kind != "ids" {
		return nil, fmt.Errorf("config: initializer kind %q is not \"ids\"", c.Initializer.Kind)
	}
	raw, err := yaml.Marshal(c.Initializer.Def)
	if err != nil {
		return nil, planerr.Wrap(planerr.KindParse, "initializer.def", err)
	}
	ids := &IDSConfig{}
	if err := yaml.Unmarshal(raw, ids); err != nil {
		return nil, planerr.Wrap(planerr.KindParse, "initializer.def", err)
	}
	return ids, nil
}

// ToSearchConfig converts the YAML-friendly SearchConfig into
// search.Config, parsing the timeout-policy string and millisecond
// durations.
func (c *PlannerConfig) ToSearchConfig() (search.Config, error) {
	policy, err := parseTimeoutPolicy(c.Search.TimeoutPolicy)
	if err != nil {
		return search.Config{}, err
	}
	return search.Config{
		PoolCapacity:           c.Search.PoolCapacity,
		NearCapacity:           c.Search.NearCapacity,
		UCBScale:               c.Search.UCBScale,
		NumInitialVisits:       c.Search.NumInitialVisits,
		NoopOptimalFinalAction: c.Search.NoopOptimalFinalAction,
		TimeoutPolicy:          policy,
		Timeout:                time.Duration(c.Search.TimeoutMillis) * time.Millisecond,
		MaxRollouts:            c.Search.MaxRollouts,
	}, nil
}

func parseTimeoutPolicy(s string) (search.TimeoutPolicy, error) {
	switch s {
	case "TIME":
		return search.TimePolicy, nil
	case "ROLLOUTS":
		return search.RolloutsPolicy, nil
	case "TIME_AND_ROLLOUTS", "":
		return search.TimeAndRolloutsPolicy, nil
	default:
		return 0, fmt.Errorf("config: unknown timeoutPolicy %q", s)
	}
}
