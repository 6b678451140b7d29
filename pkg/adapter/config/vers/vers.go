// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package vers contains the common versions parsing which is required
// by all config versions. The version of a configuration file should
// be known before trying to parse the actual settings, so the format
// of those settings can be chosen based on it. The way of keeping the
// version itself is less likely to change over time.
//
// Configuration files may be written in YAML or TOML. The Format type
// describes the encoding and the Unmarshal function decodes data with
// the relevant library, so all config versions support both encodings.
package vers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a configuration file.
type Format string

// These constants are the supported configuration file encodings.
const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatOf detects the format of the path configuration file from its
// extension. Files with the .toml extension are decoded as TOML and
// all other files are decoded as YAML.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return TOML
	}
	return YAML
}

// Unmarshal decodes data into v according to the f format.
// Unknown settings are ignored by both decoders.
func Unmarshal(f Format, data []byte, v any) error {
	switch f {
	case YAML:
		return yaml.Unmarshal(data, v)
	case TOML:
		return toml.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported config format %q", f)
	}
}

// Config contains the version of the configuration file format.
// It may be embedded in the released config struct versions in order
// to indicate their versions.
type Config struct {
	Versions Versions `yaml:"versions" toml:"versions"`
}

// Versions contains the configuration file version which is used for
// detecting its settings format.
type Versions struct {
	Config model.SemVer `yaml:"config" toml:"config"`
}

// Load deserializes the data byte slice into a new instance of Config
// struct. Of course, data may contain extra fields which will be
// ignored. The deserialized version can be used to detect the format
// of other settings in the data and complete their deserialization.
func Load(f Format, data []byte) (*Config, error) {
	vc := &Config{}
	if err := Unmarshal(f, data, vc); err != nil {
		return nil, err
	}
	return vc, nil
}

// Validate returns an error if the configuration settings version which
// is stored in the `vc` Config instance is not supported by the given
// major and minor version arguments. That is, stored major version
// must match with the major argument and the stored minor version must
// be at most equal with the given minor version (not newer than it).
func (vc *Config) Validate(major, minor uint) error {
	v := vc.Versions.Config
	if v[0] != major {
		return fmt.Errorf("incompatible major version: %d", v[0])
	}
	if v[1] > minor {
		return fmt.Errorf("unsupported minor version: %d", v[1])
	}
	return nil
}
