// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// CLIConfig is the optional deptrace.yaml. Everything in it can also be
// set by flag; the file is for operators who run the same workload shape
// repeatedly. Flags given explicitly win over file values.
type CLIConfig struct {
	// LogDir enables JSON file logging alongside stderr.
	LogDir string `yaml:"log_dir"`

	// Capacity is the default engine buffer capacity.
	Capacity int `yaml:"capacity" validate:"gte=0"`

	// Shadow enables the producer-side stream validator by default.
	Shadow bool `yaml:"shadow"`

	// Strict rejects reads and writes recorded outside any task.
	Strict bool `yaml:"strict"`

	// History is the default number of handoff records to retain.
	History int `yaml:"history" validate:"gte=0"`
}

var (
	globalConfig   CLIConfig
	configOnce     sync.Once
	configValidate = validator.New()
)

// loadConfig reads the YAML config at path into globalConfig. An empty
// path leaves the zero-value defaults in place; a missing file at an
// explicit path is an error. Safe to call more than once.
func loadConfig(path string) error {
	var err error
	configOnce.Do(func() {
		err = loadConfigInternal(path)
	})
	return err
}

func loadConfigInternal(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &globalConfig); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := configValidate.Struct(globalConfig); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	return nil
}
