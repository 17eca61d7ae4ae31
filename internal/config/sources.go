package config

// SourceType distinguishes discovery sources that only listen from those that probe
type SourceType string

const (
	SourceTypePassive SourceType = "passive" // Reads advertisements or spooler state
	SourceTypeActive  SourceType = "active"  // Probes hosts on the subnet
)

// SourceConfig defines settings for a single discovery source
type SourceConfig struct {
	Enabled    bool    `yaml:"enabled"`
	BinaryPath *string `yaml:"binary_path,omitempty"` // Path to external binary
}

// SourcesConfig holds all discovery source settings
type SourcesConfig struct {
	MDNS  SourceConfig `yaml:"mdns"`
	CUPS  SourceConfig `yaml:"cups"`
	Nmap  SourceConfig `yaml:"nmap"`
	Sweep SourceConfig `yaml:"sweep"` // Used when nmap is unavailable
}

// SourceInfo describes a discovery source for display
type SourceInfo struct {
	Name    string
	Type    SourceType
	Enabled bool
}

// DefaultSources returns the default source configuration
func DefaultSources() SourcesConfig {
	return SourcesConfig{
		MDNS:  SourceConfig{Enabled: true},
		CUPS:  SourceConfig{Enabled: true},
		Nmap:  SourceConfig{Enabled: true},
		Sweep: SourceConfig{Enabled: true},
	}
}

// List returns every source with its state
func (s SourcesConfig) List() []SourceInfo {
	return []SourceInfo{
		{Name: "mdns", Type: SourceTypePassive, Enabled: s.MDNS.Enabled},
		{Name: "cups", Type: SourceTypePassive, Enabled: s.CUPS.Enabled},
		{Name: "nmap", Type: SourceTypeActive, Enabled: s.Nmap.Enabled},
		{Name: "sweep", Type: SourceTypeActive, Enabled: s.Sweep.Enabled},
	}
}

// Enabled returns only enabled sources
func (s SourcesConfig) Enabled() []SourceInfo {
	var out []SourceInfo
	for _, info := range s.List() {
		if info.Enabled {
			out = append(out, info)
		}
	}
	return out
}

// NmapBinary returns the configured nmap path, or "" for $PATH lookup
func (s SourcesConfig) NmapBinary() string {
	if s.Nmap.BinaryPath == nil {
		return ""
	}
	return *s.Nmap.BinaryPath
}
