// Package config loads the kernel's Configuration document (spec §6): a
// YAML file enumerating exactly the recognized option set, with unknown
// keys rejected at load time.
package config

import (
	"bytes"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/aegisrail/govkernel/pkg/kernelerr"
	"gopkg.in/yaml.v3"
)

// ApprovalConfig tunes the approval gate's throttling behavior.
type ApprovalConfig struct {
	MaxApprovalsPerHour       int  `yaml:"max_approvals_per_hour"`
	CooldownAfterBurst        int  `yaml:"cooldown_after_burst"` // minutes
	BurstThreshold            int  `yaml:"burst_threshold"`
	RequireSummaryConfirmation bool `yaml:"require_summary_confirmation"`
}

// StorageConfig names a storage backend and its connection fields.
// Backend is one of "local", "github", "s3", "gcs".
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
	Bucket  string `yaml:"bucket,omitempty"`
	Region  string `yaml:"region,omitempty"`
	Repo    string `yaml:"repo,omitempty"`
	Branch  string `yaml:"branch,omitempty"`
}

// StorageSection groups the primary and backup storage backends.
type StorageSection struct {
	Primary StorageConfig   `yaml:"primary"`
	Backup  []StorageConfig `yaml:"backup"`
}

// ChainConfig names the external anchor service's connection parameters.
type ChainConfig struct {
	RPCURL          string `yaml:"rpc_url"`
	ContractAddress string `yaml:"contract_address"`
	Network         string `yaml:"network"`
}

// Configuration is the recognized document shape. Every field here, and
// only these fields, may appear in a configuration document.
type Configuration struct {
	GovernanceDir  string         `yaml:"governance_dir"`
	Approval       ApprovalConfig `yaml:"approval"`
	Storage        StorageSection `yaml:"storage"`
	Chain          ChainConfig    `yaml:"chain"`
	ReleaseVersion string         `yaml:"release_version"`
}

var validStorageBackends = map[string]bool{"local": true, "github": true, "s3": true, "gcs": true}

// Load parses and validates a Configuration document from raw YAML bytes.
// Unknown top-level or nested fields are a load error (strict decoding),
// per spec §6 ("Unknown options are rejected").
func Load(raw []byte) (*Configuration, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var cfg Configuration
	if err := dec.Decode(&cfg); err != nil {
		return nil, kernelerr.Wrap(kernelerr.KindSchema, "configuration has unrecognized or malformed fields", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Configuration) validate() error {
	if c.GovernanceDir == "" {
		return kernelerr.New(kernelerr.KindSchema, "governance_dir is required")
	}
	if c.Approval.MaxApprovalsPerHour < 1 {
		return kernelerr.New(kernelerr.KindSchema, "approval.max_approvals_per_hour must be >= 1")
	}
	if c.Approval.CooldownAfterBurst < 0 {
		return kernelerr.New(kernelerr.KindSchema, "approval.cooldown_after_burst must be >= 0")
	}
	if c.Approval.BurstThreshold < 1 {
		return kernelerr.New(kernelerr.KindSchema, "approval.burst_threshold must be >= 1")
	}
	if c.Storage.Primary.Backend != "" && !validStorageBackends[c.Storage.Primary.Backend] {
		return kernelerr.New(kernelerr.KindSchema, fmt.Sprintf("storage.primary %q is not one of local|github|s3|gcs", c.Storage.Primary.Backend))
	}
	for _, backup := range c.Storage.Backup {
		if !validStorageBackends[backup.Backend] {
			return kernelerr.New(kernelerr.KindSchema, fmt.Sprintf("storage.backup %q is not one of local|github|s3|gcs", backup.Backend))
		}
	}
	if c.ReleaseVersion != "" {
		if _, err := semver.NewVersion(c.ReleaseVersion); err != nil {
			return kernelerr.Wrap(kernelerr.KindSchema, "release_version is not valid semver", err)
		}
	}
	return nil
}
