package config

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"gopkg.in/yaml.v2"
)

const (
	ProviderFal       = "fal"
	ProviderReplicate = "replicate"
)

// Pricing describes how one job kind is billed and where it is dispatched.
type Pricing struct {
	CreditKind models.CreditKind `yaml:"credit_kind"`
	UnitCost   int64             `yaml:"unit_cost"`
	Provider   string            `yaml:"provider"`
	Endpoint   string            `yaml:"endpoint"`
}

// Catalog is the pricing table plus the balances provisioned for new users.
type Catalog struct {
	Jobs          map[models.JobKind]Pricing  `yaml:"jobs"`
	InitialGrants map[models.CreditKind]int64 `yaml:"initial_grants"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Jobs: map[models.JobKind]Pricing{
			models.JobTraining: {CreditKind: models.CreditModel, UnitCost: 1, Provider: ProviderFal, Endpoint: "fal-ai/flux-lora-fast-training"},
			models.JobPhoto:    {CreditKind: models.CreditPhoto, UnitCost: 1, Provider: ProviderFal, Endpoint: "fal-ai/flux-lora"},
			models.JobVideo:    {CreditKind: models.CreditVideo, UnitCost: 1, Provider: ProviderReplicate, Endpoint: "kwaivgi/kling-v1.6-standard"},
		},
		InitialGrants: map[models.CreditKind]int64{
			models.CreditModel: 1,
			models.CreditPhoto: 10,
			models.CreditVideo: 2,
		},
	}
}

// LoadCatalog reads a YAML catalog and validates that every job kind is
// priced with a known credit kind and provider.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("unable to read %s: %w", path, err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("unable to parse %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func (c Catalog) Validate() error {
	for _, kind := range models.JobKinds {
		p, ok := c.Jobs[kind]
		if !ok {
			return fmt.Errorf("job kind %q is not priced", kind)
		}
		if _, err := models.ParseCreditKind(string(p.CreditKind)); err != nil {
			return fmt.Errorf("job kind %q: %w", kind, err)
		}
		if p.UnitCost <= 0 {
			return fmt.Errorf("job kind %q: unit cost must be positive", kind)
		}
		if p.Provider != ProviderFal && p.Provider != ProviderReplicate {
			return fmt.Errorf("job kind %q: unknown provider %q", kind, p.Provider)
		}
		if p.Endpoint == "" {
			return fmt.Errorf("job kind %q: missing endpoint", kind)
		}
	}
	for kind, grant := range c.InitialGrants {
		if _, err := models.ParseCreditKind(string(kind)); err != nil {
			return err
		}
		if grant < 0 {
			return fmt.Errorf("initial grant for %q is negative", kind)
		}
	}
	return nil
}
