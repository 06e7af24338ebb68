package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/shop-economy/internal/core/domain"
)

var ErrInvalidEconomy = errors.New("invalid economy definition")

// Economy is the startup definition of currencies, items and the shop.
type Economy struct {
	Currencies []domain.CurrencyKind
	Items      []domain.ItemKind
	Catalog    *domain.Catalog
}

type economyFile struct {
	Currencies []currencyDef `yaml:"currencies"`
	Items      []itemDef     `yaml:"items"`
	Catalog    []entryDef    `yaml:"catalog"`
}

type currencyDef struct {
	ID            string `yaml:"id"`
	DisplayName   string `yaml:"display_name"`
	InitialAmount int    `yaml:"initial_amount"`
}

type itemDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	MaxStack    *int   `yaml:"max_stack"`
}

type entryDef struct {
	ID    string    `yaml:"id"`
	Item  string    `yaml:"item"`
	Costs []costDef `yaml:"costs"`
	Stock *int      `yaml:"stock"`
}

type costDef struct {
	Currency string `yaml:"currency"`
	Amount   int    `yaml:"amount"`
}

func LoadEconomy(path string) (*Economy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read economy file: %w", err)
	}
	return ParseEconomy(data)
}

// ParseEconomy decodes and validates a YAML economy definition. An item
// without max_stack is not stackable; an entry without stock is unlimited.
func ParseEconomy(data []byte) (*Economy, error) {
	var f economyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode economy: %w", err)
	}

	eco := &Economy{}
	currencies := make(map[domain.CurrencyID]bool, len(f.Currencies))
	for _, c := range f.Currencies {
		id := domain.CurrencyID(c.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: currency without id", ErrInvalidEconomy)
		}
		if currencies[id] {
			return nil, fmt.Errorf("%w: duplicate currency %q", ErrInvalidEconomy, id)
		}
		currencies[id] = true
		eco.Currencies = append(eco.Currencies, domain.CurrencyKind{
			ID:            id,
			DisplayName:   c.DisplayName,
			InitialAmount: c.InitialAmount,
		})
	}

	items := make(map[domain.ItemID]domain.ItemKind, len(f.Items))
	for _, it := range f.Items {
		maxStack := 1
		if it.MaxStack != nil {
			maxStack = *it.MaxStack
		}
		kind := domain.ItemKind{
			ID:          domain.ItemID(it.ID),
			Name:        it.Name,
			Description: it.Description,
			MaxStack:    maxStack,
		}
		if kind.ID == "" {
			return nil, fmt.Errorf("%w: item without id", ErrInvalidEconomy)
		}
		if _, dup := items[kind.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item %q", ErrInvalidEconomy, kind.ID)
		}
		if kind.MaxStack <= 0 {
			return nil, fmt.Errorf("%w: item %q max_stack must be positive", ErrInvalidEconomy, kind.ID)
		}
		items[kind.ID] = kind
		eco.Items = append(eco.Items, kind)
	}

	entries := make([]*domain.CatalogEntry, 0, len(f.Catalog))
	seen := make(map[string]bool, len(f.Catalog))
	for _, e := range f.Catalog {
		kind, ok := items[domain.ItemID(e.Item)]
		if !ok {
			return nil, fmt.Errorf("%w: catalog entry %q sells unknown item %q", ErrInvalidEconomy, e.ID, e.Item)
		}

		id := e.ID
		if id == "" {
			id = e.Item
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate catalog entry %q", ErrInvalidEconomy, id)
		}
		seen[id] = true

		stock := domain.StockUnlimited
		if e.Stock != nil {
			stock = *e.Stock
		}
		if stock < domain.StockUnlimited {
			return nil, fmt.Errorf("%w: catalog entry %q stock %d", ErrInvalidEconomy, id, stock)
		}

		costs := make([]domain.CostLine, 0, len(e.Costs))
		for _, c := range e.Costs {
			if !currencies[domain.CurrencyID(c.Currency)] {
				return nil, fmt.Errorf("%w: catalog entry %q costs unknown currency %q", ErrInvalidEconomy, id, c.Currency)
			}
			if c.Amount <= 0 {
				return nil, fmt.Errorf("%w: catalog entry %q cost amount must be positive", ErrInvalidEconomy, id)
			}
			costs = append(costs, domain.CostLine{Currency: domain.CurrencyID(c.Currency), Amount: c.Amount})
		}

		entries = append(entries, &domain.CatalogEntry{
			ID:    id,
			Item:  kind,
			Costs: costs,
			Stock: stock,
		})
	}
	eco.Catalog = domain.NewCatalog(entries...)

	return eco, nil
}
