package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/logger"
	"github.com/Nzyazin/cashdesk/internal/core/models"
	"github.com/Nzyazin/cashdesk/internal/core/repository"
)

type entry struct {
	quantity    int64
	lastUpdated time.Time
}

// inventory is one cashier's banknotes in one currency, keyed by face value.
type inventory map[int]*entry

type cashier struct {
	name     string
	balances map[models.Currency]inventory
}

type cashierRepo struct {
	cashiers map[string]*cashier
	log      logger.Logger
}

// SeedCashier is the initial inventory of one cashier.
type SeedCashier struct {
	Name     string
	Balances map[models.Currency][]models.DenominationDelta
}

// DefaultSeed is the fixed roster every process starts with.
func DefaultSeed() []SeedCashier {
	roster := []string{"MARTINA", "PETER", "LINDA"}
	seed := make([]SeedCashier, 0, len(roster))
	for _, name := range roster {
		seed = append(seed, SeedCashier{
			Name: name,
			Balances: map[models.Currency][]models.DenominationDelta{
				models.CurrencyBGN: {{FaceValue: 10, Quantity: 50}, {FaceValue: 50, Quantity: 10}},
				models.CurrencyEUR: {{FaceValue: 10, Quantity: 100}, {FaceValue: 50, Quantity: 20}},
			},
		})
	}
	return seed
}

// NewCashierRepository builds the ledger from seed. The cashier set and each
// cashier's currency map are fixed here and never change shape afterwards.
func NewCashierRepository(seed []SeedCashier, log logger.Logger) (repository.CashierRepository, error) {
	now := time.Now()
	repo := &cashierRepo{
		cashiers: make(map[string]*cashier, len(seed)),
		log:      log,
	}

	for _, s := range seed {
		if _, dup := repo.cashiers[s.Name]; dup {
			return nil, fmt.Errorf("duplicate cashier %q in seed", s.Name)
		}
		c := &cashier{name: s.Name, balances: make(map[models.Currency]inventory, len(models.Currencies))}
		for _, cur := range models.Currencies {
			c.balances[cur] = make(inventory)
		}
		for cur, denoms := range s.Balances {
			inv, ok := c.balances[cur]
			if !ok {
				return nil, fmt.Errorf("cashier %s: unsupported seed currency %q", s.Name, cur)
			}
			for _, d := range denoms {
				if !models.IsAllowedFaceValue(d.FaceValue) || d.Quantity < 0 {
					return nil, fmt.Errorf("cashier %s: invalid seed denomination %s", s.Name, d)
				}
				if e, ok := inv[d.FaceValue]; ok {
					e.quantity += d.Quantity
					continue
				}
				inv[d.FaceValue] = &entry{quantity: d.Quantity, lastUpdated: now}
			}
		}
		repo.cashiers[s.Name] = c
	}

	log.Info("Ledger seeded", logger.IntField("cashiers", len(repo.cashiers)))
	return repo, nil
}

func (r *cashierRepo) Exists(name string) bool {
	_, ok := r.cashiers[name]
	return ok
}

func (r *cashierRepo) Names() []string {
	names := make([]string, 0, len(r.cashiers))
	for name := range r.cashiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *cashierRepo) lookup(name string) (*cashier, error) {
	c, ok := r.cashiers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrCashierNotFound, name)
	}
	return c, nil
}

func (r *cashierRepo) inventory(name string, currency models.Currency) (inventory, error) {
	c, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	inv, ok := c.balances[currency]
	if !ok {
		return nil, fmt.Errorf("unsupported currency %q", currency)
	}
	return inv, nil
}

// Get copies every currency of the cashier. It is only consistent when the
// caller holds all of the cashier's currency locks.
func (r *cashierRepo) Get(name string) (models.CashierBalance, error) {
	c, err := r.lookup(name)
	if err != nil {
		return models.CashierBalance{}, err
	}

	balance := models.CashierBalance{
		Timestamp: time.Now(),
		Cashier:   c.name,
		Balances:  make(map[models.Currency][]models.Denomination, len(c.balances)),
	}
	for cur, inv := range c.balances {
		if len(inv) == 0 {
			continue
		}
		balance.Balances[cur] = inv.copy()
	}
	return balance, nil
}

func (r *cashierRepo) Holdings(name string, currency models.Currency) (map[int]int64, error) {
	inv, err := r.inventory(name, currency)
	if err != nil {
		return nil, err
	}
	holdings := make(map[int]int64, len(inv))
	for value, e := range inv {
		holdings[value] = e.quantity
	}
	return holdings, nil
}

// ApplyDelta is all-or-nothing: a debit that would take any entry below zero,
// or that names a face value the inventory lacks, changes nothing.
func (r *cashierRepo) ApplyDelta(name string, currency models.Currency, deltas []models.DenominationDelta, sign repository.Sign, at time.Time) (models.CurrencyBalance, error) {
	inv, err := r.inventory(name, currency)
	if err != nil {
		return models.CurrencyBalance{}, err
	}

	merged := models.MergeDeltas(deltas)
	for _, d := range merged {
		if d.Quantity < 0 {
			return models.CurrencyBalance{}, fmt.Errorf("%w: %s %s %s", repository.ErrNegativeQuantity, name, currency, d)
		}
	}
	if sign == repository.Debit {
		for _, d := range merged {
			e, ok := inv[d.FaceValue]
			if !ok || e.quantity < d.Quantity {
				return models.CurrencyBalance{}, fmt.Errorf("%w: %s %s %s", repository.ErrNegativeQuantity, name, currency, d)
			}
		}
	}

	for _, d := range merged {
		if e, ok := inv[d.FaceValue]; ok {
			e.quantity += int64(sign) * d.Quantity
			e.lastUpdated = at
			continue
		}
		inv[d.FaceValue] = &entry{quantity: d.Quantity, lastUpdated: at}
	}

	return models.CurrencyBalance{Cashier: name, Currency: currency, Denominations: inv.copy()}, nil
}

func (r *cashierRepo) SnapshotCurrency(name string, currency models.Currency) (models.CurrencyBalance, error) {
	inv, err := r.inventory(name, currency)
	if err != nil {
		return models.CurrencyBalance{}, err
	}
	return models.CurrencyBalance{Cashier: name, Currency: currency, Denominations: inv.copy()}, nil
}

func (inv inventory) copy() []models.Denomination {
	out := make([]models.Denomination, 0, len(inv))
	for value, e := range inv {
		out = append(out, models.Denomination{FaceValue: value, Quantity: e.quantity, LastUpdated: e.lastUpdated})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FaceValue < out[j].FaceValue })
	return out
}
