package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/mgomes/tapescript/tape"
)

const (
	configFileName = "tape.toml"
	replStepQuota  = 1_000_000
)

// projectConfig represents a tape.toml file.
type projectConfig struct {
	Machine machineSection `toml:"machine"`

	// Path is the file the configuration was read from (set at load time).
	Path string `toml:"-"`
}

type machineSection struct {
	TapeSize  int `toml:"tape-size"`
	StepQuota int `toml:"step-quota"`
}

func loadConfig(path string) (*projectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var cfg projectConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	cfg.Path = path
	return &cfg, nil
}

// findConfig walks up from startDir looking for tape.toml. It returns nil
// when no file is found.
func findConfig(startDir string) (*projectConfig, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		path := filepath.Join(dir, configFileName)
		if _, err := os.Stat(path); err == nil {
			return loadConfig(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("access %s: %w", path, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

type machineFlags struct {
	configPath *string
	tapeSize   *int
	stepQuota  *int
	verbose    *bool
}

func addMachineFlags(fs *flag.FlagSet) machineFlags {
	return machineFlags{
		configPath: fs.String("config", "", "path to "+configFileName),
		tapeSize:   fs.Int("tape-size", 0, "number of tape cells"),
		stepQuota:  fs.Int("step-quota", 0, "maximum instructions to execute (0 = unlimited)"),
		verbose:    fs.Bool("v", false, "log progress to stderr"),
	}
}

// machineConfig merges the configuration file with flags set on the
// command line; explicit flags win.
func (f machineFlags) machineConfig(fs *flag.FlagSet, searchDir string) (tape.Config, error) {
	var (
		file *projectConfig
		err  error
	)
	if *f.configPath != "" {
		file, err = loadConfig(*f.configPath)
	} else {
		file, err = findConfig(searchDir)
	}
	if err != nil {
		return tape.Config{}, err
	}

	var cfg tape.Config
	if file != nil {
		log.Debugf("using configuration %s", file.Path)
		cfg.TapeSize = file.Machine.TapeSize
		cfg.StepQuota = file.Machine.StepQuota
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "tape-size":
			cfg.TapeSize = *f.tapeSize
		case "step-quota":
			cfg.StepQuota = *f.stepQuota
		}
	})
	return cfg, nil
}
