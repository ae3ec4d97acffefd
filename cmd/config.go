package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig mirrors CommonFlags for the TOML config-file path, letting
// a whole run be described in one file instead of a long flag list.
type FileConfig struct {
	Source struct {
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		Name     string `toml:"name"`
	} `toml:"source"`
	Target struct {
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		Name     string `toml:"name"`
	} `toml:"target"`
	MaxParallelism int  `toml:"max_parallelism"`
	Differential   bool `toml:"differential"`
}

// loadFileConfig reads a TOML config file into a CommonFlags value,
// rejecting unknown keys.
func loadFileConfig(path string) (CommonFlags, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return CommonFlags{}, fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), &fc)
	if err != nil {
		return CommonFlags{}, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		return CommonFlags{}, fmt.Errorf("unknown config keys: %v", unknown)
	}

	f := CommonFlags{
		Source: ConnFlags{
			Host: fc.Source.Host, Port: fc.Source.Port,
			User: fc.Source.User, Password: fc.Source.Password, Name: fc.Source.Name,
		},
		Target: ConnFlags{
			Host: fc.Target.Host, Port: fc.Target.Port,
			User: fc.Target.User, Password: fc.Target.Password, Name: fc.Target.Name,
		},
		MaxParallelism: fc.MaxParallelism,
		Differential:   fc.Differential,
	}
	if f.Source.Port == 0 {
		f.Source.Port = 5432
	}
	if f.Target.Port == 0 {
		f.Target.Port = 5432
	}
	if f.MaxParallelism == 0 {
		f.MaxParallelism = 4
	}
	return f, nil
}
