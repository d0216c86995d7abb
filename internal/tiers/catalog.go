// Package tiers содержит каталог тарифов заявки: цена в кредитах,
// число вердиктов и стратегия маршрутизации.
package tiers

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type RoutingStrategy string

const (
	RoutingNone       RoutingStrategy = "none"
	RoutingCommunity  RoutingStrategy = "community"
	RoutingExpertPool RoutingStrategy = "expert_pool"
)

var ErrInvalidTier = errors.New("unknown or inactive tier")

type TierConfig struct {
	Name               string          `yaml:"name" json:"name"`
	CreditsRequired    int             `yaml:"credits_required" json:"credits_required"`
	VerdictCount       int             `yaml:"verdict_count" json:"verdict_count"`
	RoutingStrategy    RoutingStrategy `yaml:"routing_strategy" json:"routing_strategy"`
	Active             bool            `yaml:"active" json:"active"`
	ExpertPoolSize     int             `yaml:"expert_pool_size" json:"expert_pool_size,omitempty"`
	MinCredentialLevel int             `yaml:"min_credential_level" json:"min_credential_level,omitempty"`
}

// DefaultTiers - каталог по умолчанию
func DefaultTiers() []TierConfig {
	return []TierConfig{
		{Name: "community", CreditsRequired: 1, VerdictCount: 3, RoutingStrategy: RoutingCommunity, Active: true},
		{Name: "standard", CreditsRequired: 2, VerdictCount: 5, RoutingStrategy: RoutingNone, Active: true},
		{Name: "pro", CreditsRequired: 4, VerdictCount: 10, RoutingStrategy: RoutingExpertPool, Active: true, ExpertPoolSize: 8, MinCredentialLevel: 1},
		{Name: "expert", CreditsRequired: 8, VerdictCount: 15, RoutingStrategy: RoutingExpertPool, Active: true, ExpertPoolSize: 15, MinCredentialLevel: 2},
	}
}

// DefaultLegacyTiers - числовые тиры старых клиентов (число вердиктов)
func DefaultLegacyTiers() []string {
	return []string{"3", "5", "10", "15"}
}

// Catalog - неизменяемый после создания каталог тиров
type Catalog struct {
	byName map[string]TierConfig
	legacy map[string]string
}

// NewCatalog собирает каталог и проверяет согласованность:
// каждый legacy-тир должен ссылаться ровно на один активный тир
// с тем же числом вердиктов, иначе цены legacy и именованных тиров разъедутся.
func NewCatalog(entries []TierConfig, legacy []string) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, errors.New("tier catalog is empty")
	}

	c := &Catalog{
		byName: make(map[string]TierConfig, len(entries)),
		legacy: make(map[string]string, len(legacy)),
	}

	for _, e := range entries {
		name := normalize(e.Name)
		if name == "" {
			return nil, errors.New("tier name is required")
		}
		if _, err := strconv.Atoi(name); err == nil {
			return nil, fmt.Errorf("tier %q: numeric names are reserved for legacy tiers", name)
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("tier %q declared twice", name)
		}
		if e.CreditsRequired <= 0 || e.VerdictCount <= 0 {
			return nil, fmt.Errorf("tier %q: credits_required and verdict_count must be positive", name)
		}
		switch e.RoutingStrategy {
		case RoutingNone, RoutingCommunity:
		case RoutingExpertPool:
			if e.ExpertPoolSize <= 0 {
				return nil, fmt.Errorf("tier %q: expert_pool routing requires expert_pool_size", name)
			}
		default:
			return nil, fmt.Errorf("tier %q: unknown routing strategy %q", name, e.RoutingStrategy)
		}
		e.Name = name
		c.byName[name] = e
	}

	for _, l := range legacy {
		l = normalize(l)
		count, err := strconv.Atoi(l)
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("legacy tier %q is not a positive verdict count", l)
		}

		var matches []string
		for name, e := range c.byName {
			if e.Active && e.VerdictCount == count {
				matches = append(matches, name)
			}
		}
		switch len(matches) {
		case 1:
			c.legacy[l] = matches[0]
		case 0:
			return nil, fmt.Errorf("legacy tier %q has no active tier with %d verdicts", l, count)
		default:
			sort.Strings(matches)
			return nil, fmt.Errorf("legacy tier %q is ambiguous: %s", l, strings.Join(matches, ", "))
		}
	}

	return c, nil
}

// Resolve возвращает конфиг по имени тира или legacy-номеру
func (c *Catalog) Resolve(name string) (TierConfig, error) {
	key := normalize(name)
	if canonical, ok := c.legacy[key]; ok {
		key = canonical
	}
	e, ok := c.byName[key]
	if !ok || !e.Active {
		return TierConfig{}, fmt.Errorf("%w: %q", ErrInvalidTier, name)
	}
	return e, nil
}

// Tiers возвращает активные тиры, отсортированные по цене
func (c *Catalog) Tiers() []TierConfig {
	out := make([]TierConfig, 0, len(c.byName))
	for _, e := range c.byName {
		if e.Active {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreditsRequired != out[j].CreditsRequired {
			return out[i].CreditsRequired < out[j].CreditsRequired
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// LegacyMapping - legacy-номер -> имя тира
func (c *Catalog) LegacyMapping() map[string]string {
	out := make(map[string]string, len(c.legacy))
	for k, v := range c.legacy {
		out[k] = v
	}
	return out
}

// ExpertPoolTiers - имена активных тиров с маршрутизацией на экспертов
func (c *Catalog) ExpertPoolTiers() []string {
	var out []string
	for _, e := range c.Tiers() {
		if e.RoutingStrategy == RoutingExpertPool {
			out = append(out, e.Name)
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
