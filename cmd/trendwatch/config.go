package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abelbrown/trendwatch/internal/config"
)

func runConfig() error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Config file (default ~/.trendwatch/config.yaml)")
	initFile := fs.Bool("init", false, "Write the default configuration if none exists")
	force := fs.Bool("force", false, "With -init, overwrite an existing file")
	fs.Parse(os.Args[1:])

	path := *cfgPath
	if path == "" {
		path = config.ConfigPath()
	}

	if *initFile {
		if _, err := os.Stat(path); err == nil && !*force {
			return fmt.Errorf("%s already exists (use -force to overwrite)", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	}

	cfg, err := loadConfig(path, "")
	if err != nil {
		return err
	}
	if cfg.FactCheck.APIKey != "" {
		cfg.FactCheck.APIKey = "********"
	}
	if cfg.Redis.Password != "" {
		cfg.Redis.Password = "********"
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}
