package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Load reads a config file on top of the defaults. The format follows the
// file extension: .hcl or .toml.
func Load(path string) (*Config, error) {
	c := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		if err := loadHCL(path, c); err != nil {
			return nil, err
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file %s: expected .hcl or .toml", path)
	}
	if c.Log == nil {
		c.Log = Default().Log
	}
	return c, nil
}

func loadHCL(path string, c *Config) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	diags = gohcl.DecodeBody(file.Body, evalContext(path), c)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	return nil
}

// evalContext exposes the process environment as env.NAME and the
// directory holding the config file as config_dir.
func evalContext(path string) *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(k) {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		dir = filepath.Dir(path)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{
		"env":        cty.ObjectVal(env),
		"config_dir": cty.StringVal(dir),
	}}
}
