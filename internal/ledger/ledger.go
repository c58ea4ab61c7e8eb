// Package ledger tracks API spend per calendar month across process runs,
// plus a transient per-session total. The persisted state is a single JSON
// record; writes are atomic (temp file + rename) so a crash mid-write can
// never leave a torn record.
package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"renderai/internal/pricing"
)

const monthLayout = "2006-01"

type record struct {
	Month       string    `json:"month"`
	MonthlyCost float64   `json:"monthly_cost"`
	LastUpdated time.Time `json:"last_updated"`
}

type Options struct {
	// Path of the persisted ledger record. Empty disables persistence:
	// spend is then tracked for the session only.
	Path    string
	Pricing pricing.Table
	Logger  *slog.Logger

	// Now overrides the clock, for month-rollover tests.
	Now func() time.Time
}

type Ledger struct {
	mu         sync.Mutex
	path       string
	pricing    pricing.Table
	logger     *slog.Logger
	now        func() time.Time
	monthlyUSD float64
	sessionUSD float64
}

func New(opts Options) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	table := opts.Pricing
	if table == nil {
		table = pricing.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Ledger{
		path:    opts.Path,
		pricing: table,
		logger:  logger,
		now:     now,
	}
}

// Load restores the monthly total from the persisted record. A stored month
// that differs from the current one is a month rollover: the total resets
// to zero lazily, without rewriting the file until the next RecordCost. A
// missing or corrupt record is never fatal and reads as "no prior spend".
func (l *Ledger) Load() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.monthlyUSD = 0
	if l.path == "" {
		return
	}

	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Debug("no ledger record yet", "path", l.path)
		} else {
			l.logger.Warn("ledger unreadable, starting from zero", "path", l.path, "err", err)
		}
		return
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		l.logger.Warn("ledger record corrupt, starting from zero", "path", l.path, "err", err)
		return
	}

	current := l.now().Format(monthLayout)
	if rec.Month == current {
		l.monthlyUSD = rec.MonthlyCost
		return
	}

	l.logger.Info("month rollover, monthly spend reset",
		"stored_month", rec.Month, "current_month", current)
}

// Estimate returns the flat per-image rate for one render at the given
// model and resolution tier.
func (l *Ledger) Estimate(model, tier string) float64 {
	return l.pricing.Cost(model, tier)
}

// CheckBudget reports whether prior monthly spend is strictly below the
// ceiling. Deliberately no look-ahead: the check ignores the cost of the
// request being approved, so a single render can land past the ceiling.
func (l *Ledger) CheckBudget(ceilingUSD float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.monthlyUSD < ceilingUSD
}

// RecordCost adds amount to the monthly and session totals and persists
// the monthly state. Persistence trouble degrades to session-only tracking
// with a warning; the render already happened and was paid for.
func (l *Ledger) RecordCost(amountUSD float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.monthlyUSD += amountUSD
	l.sessionUSD += amountUSD

	l.logger.Info("cost recorded",
		"amount_usd", amountUSD,
		"session_usd", l.sessionUSD,
		"monthly_usd", l.monthlyUSD)

	if l.path == "" {
		return
	}
	if err := l.persistLocked(); err != nil {
		l.logger.Warn("ledger write failed, spend tracked for session only",
			"path", l.path, "err", err)
	}
}

func (l *Ledger) persistLocked() error {
	rec := record{
		Month:       l.now().Format(monthLayout),
		MonthlyCost: l.monthlyUSD,
		LastUpdated: l.now().UTC(),
	}

	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp record: %w", err)
	}

	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace record: %w", err)
	}
	return nil
}

func (l *Ledger) MonthlyCost() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.monthlyUSD
}

func (l *Ledger) SessionCost() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionUSD
}

// ResetSession zeroes the session counter only; persisted monthly state is
// untouched.
func (l *Ledger) ResetSession() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessionUSD = 0
}
