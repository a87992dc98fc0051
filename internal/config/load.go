package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"contrarian-lab/internal/domain"
)

// Load returns Default() overlaid with the YAML (or JSON) file at path.
// An empty path returns the defaults.
//
// Overlay rules: scalars present in the file replace defaults. A position
// entry is merged field by field onto the profile it overlays. Entries of
// frequencies and asset_class_map are replaced per key. Keys absent from the
// file keep their default and lists replace wholesale.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode overlays YAML/JSON bytes onto cfg. Unknown keys are rejected.
func Decode(data []byte, cfg *Config) error {
	before := make(map[domain.AssetClass]SizingProfile, len(cfg.Position))
	for class, p := range cfg.Position {
		before[class] = p
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode config: %w", err)
	}

	// yaml.v3 decodes every map value into a zero struct, so partial
	// position entries are replayed onto the profiles they overlay.
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return mergePositions(&doc, before, cfg)
}

func mergePositions(doc *yaml.Node, before map[domain.AssetClass]SizingProfile, cfg *Config) error {
	position := mappingValue(doc, "position")
	if position == nil {
		return nil
	}
	if cfg.Position == nil {
		cfg.Position = make(map[domain.AssetClass]SizingProfile)
	}
	for i := 0; i+1 < len(position.Content); i += 2 {
		class := domain.AssetClass(position.Content[i].Value)
		profile := before[class]
		if err := resolve(position.Content[i+1]).Decode(&profile); err != nil {
			return fmt.Errorf("decode config: position.%s: %w", class, err)
		}
		cfg.Position[class] = profile
	}
	return nil
}

// mappingValue returns the mapping under key at the document root, or nil.
func mappingValue(doc *yaml.Node, key string) *yaml.Node {
	root := resolve(doc)
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = resolve(root.Content[0])
	}
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != key {
			continue
		}
		if v := resolve(root.Content[i+1]); v.Kind == yaml.MappingNode {
			return v
		}
		return nil
	}
	return nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Overrides are explicit command-line settings. Nil fields are not set.
type Overrides struct {
	DataPath         *string
	DateColumn       *string
	Dataset          *string
	OutputDir        *string
	LongOnly         *bool
	EntryTiming      *EntryTiming
	GrossCap         *float64
	PerSymbolCap     *float64
	RoundTripCostBps *float64
	PostgresDSN      *string
	ClickhouseDSN    *string
	LogLevel         *string
	LogFormat        *string
}

// Apply writes every set override into cfg.
func (o Overrides) Apply(cfg *Config) {
	if o.DataPath != nil {
		cfg.Data.Path = *o.DataPath
	}
	if o.DateColumn != nil {
		cfg.Data.DateColumn = *o.DateColumn
	}
	if o.Dataset != nil {
		cfg.Data.Dataset = *o.Dataset
	}
	if o.OutputDir != nil {
		cfg.Output.Dir = *o.OutputDir
	}
	if o.LongOnly != nil {
		cfg.Trading.LongOnly = *o.LongOnly
	}
	if o.EntryTiming != nil {
		cfg.Trading.EntryTiming = *o.EntryTiming
	}
	if o.GrossCap != nil {
		cfg.Portfolio.GrossCap = *o.GrossCap
	}
	if o.PerSymbolCap != nil {
		cfg.Portfolio.PerSymbolCap = *o.PerSymbolCap
	}
	if o.RoundTripCostBps != nil {
		cfg.Portfolio.RoundTripCostBps = *o.RoundTripCostBps
	}
	if o.PostgresDSN != nil {
		cfg.Storage.PostgresDSN = *o.PostgresDSN
	}
	if o.ClickhouseDSN != nil {
		cfg.Storage.ClickhouseDSN = *o.ClickhouseDSN
	}
	if o.LogLevel != nil {
		cfg.Log.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Log.Format = *o.LogFormat
	}
}

// fingerprintView is the subset of Config that determines engine output.
type fingerprintView struct {
	Frequencies   map[string]FrequencyConfig `yaml:"frequencies"`
	Trading       TradingConfig              `yaml:"trading"`
	AssetClassMap map[string]string          `yaml:"asset_class_map"`
	Position      map[string]SizingProfile   `yaml:"position"`
	Portfolio     PortfolioConfig            `yaml:"portfolio"`
}

// Fingerprint returns a canonical YAML rendering of the engine parameters.
// yaml.v3 sorts map keys, so equal configs give equal fingerprints.
func (c *Config) Fingerprint() (string, error) {
	view := fingerprintView{
		Frequencies:   c.Frequencies,
		Trading:       c.Trading,
		AssetClassMap: make(map[string]string, len(c.AssetClassMap)),
		Position:      make(map[string]SizingProfile, len(c.Position)),
		Portfolio:     c.Portfolio,
	}
	for k, v := range c.AssetClassMap {
		view.AssetClassMap[k] = string(v)
	}
	for k, v := range c.Position {
		view.Position[string(k)] = v
	}
	data, err := yaml.Marshal(view)
	if err != nil {
		return "", fmt.Errorf("marshal fingerprint: %w", err)
	}
	return string(data), nil
}
