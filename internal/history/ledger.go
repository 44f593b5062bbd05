package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SymptomAI/symptom-ai/internal/analysis"
	"github.com/SymptomAI/symptom-ai/internal/kvstore"
)

const (
	recentCap     = 10
	dayGroupCap   = 7
	dayEntriesCap = 10

	defaultRecentLimit = 3

	dateLayout = "1/2/2006"
	timeLayout = "3:04:05 PM"
)

// ErrEmptySymptoms rejects blank input before any storage write.
var ErrEmptySymptoms = errors.New("empty symptom text")

// Ledger owns the two durable history records: the flat recent-searches list
// and the day-grouped detailed history. It is the sole writer of both keys;
// every change goes out through its notifier.
type Ledger struct {
	store    kvstore.Store
	notifier *Notifier
	now      func() time.Time
	log      *zap.Logger
}

func NewLedger(store kvstore.Store, log *zap.Logger) *Ledger {
	return &Ledger{
		store:    store,
		notifier: NewNotifier(),
		now:      time.Now,
		log:      log,
	}
}

// Notifier exposes the change broadcast for subscribers (SSE handler, tests).
func (l *Ledger) Notifier() *Notifier { return l.notifier }

// RecordSearch stores a completed search. The recents list dedupes and moves
// the text to the front; the detailed history appends a fresh entry to
// today's group. Both records are persisted before the change is announced,
// so a subscriber that re-reads on the tick always sees the new state.
func (l *Ledger) RecordSearch(ctx context.Context, symptoms string, result analysis.Result) error {
	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return ErrEmptySymptoms
	}

	recents := kvstore.GetJSON(ctx, l.store, kvstore.KeySearchHistory, []string{})
	updated := make([]string, 0, len(recents)+1)
	updated = append(updated, symptoms)
	for _, item := range recents {
		if item != symptoms {
			updated = append(updated, item)
		}
	}
	if len(updated) > recentCap {
		updated = updated[:recentCap]
	}
	if err := kvstore.SetJSON(ctx, l.store, kvstore.KeySearchHistory, updated); err != nil {
		return fmt.Errorf("persist recent searches: %w", err)
	}

	now := l.now()
	entry := Entry{
		ID:             uuid.NewString(),
		Symptoms:       symptoms,
		Timestamp:      now.Format(timeLayout),
		ConditionNames: conditionNames(result, 2),
		Analysis:       result,
	}

	groups := kvstore.GetJSON(ctx, l.store, kvstore.KeyDetailedHistory, []DayGroup{})
	groups = appendEntry(groups, now.Format(dateLayout), entry)
	if err := kvstore.SetJSON(ctx, l.store, kvstore.KeyDetailedHistory, groups); err != nil {
		return fmt.Errorf("persist detailed history: %w", err)
	}

	l.log.Debug("search recorded",
		zap.String("symptoms", symptoms),
		zap.Int("recents", len(updated)),
		zap.Int("day_groups", len(groups)))
	l.notifier.Announce()
	return nil
}

// appendEntry prepends entry into the group for date, creating a new leading
// group when the day changes. Groups beyond the cap are evicted oldest-first
// (the list is most-recent-day-first, so eviction trims the tail).
func appendEntry(groups []DayGroup, date string, entry Entry) []DayGroup {
	for i := range groups {
		if groups[i].Date == date {
			groups[i].Searches = append([]Entry{entry}, groups[i].Searches...)
			if len(groups[i].Searches) > dayEntriesCap {
				groups[i].Searches = groups[i].Searches[:dayEntriesCap]
			}
			return groups
		}
	}
	groups = append([]DayGroup{{Date: date, Searches: []Entry{entry}}}, groups...)
	if len(groups) > dayGroupCap {
		groups = groups[:dayGroupCap]
	}
	return groups
}

// Recent returns up to limit recent symptom strings, most-recent-first.
// Limit <= 0 means the default of 3. Absent or corrupt storage yields an
// empty list.
func (l *Ledger) Recent(ctx context.Context, limit int) []string {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	recents := kvstore.GetJSON(ctx, l.store, kvstore.KeySearchHistory, []string{})
	if len(recents) > limit {
		recents = recents[:limit]
	}
	return recents
}

// Detailed returns the day-grouped history, most-recent-day-first.
func (l *Ledger) Detailed(ctx context.Context) []DayGroup {
	return kvstore.GetJSON(ctx, l.store, kvstore.KeyDetailedHistory, []DayGroup{})
}

// FindAnalysis scans day groups in order and returns the stored analysis for
// the first entry whose text exactly matches. It lets a recent-chat click
// replay a past result without another gateway call.
func (l *Ledger) FindAnalysis(ctx context.Context, symptoms string) (analysis.Result, bool) {
	for _, group := range l.Detailed(ctx) {
		for _, e := range group.Searches {
			if e.Symptoms == symptoms {
				return e.Analysis, true
			}
		}
	}
	return analysis.Result{}, false
}

// Clear drops both history records and announces the change.
func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.store.Remove(ctx, kvstore.KeySearchHistory); err != nil {
		return fmt.Errorf("clear recent searches: %w", err)
	}
	if err := l.store.Remove(ctx, kvstore.KeyDetailedHistory); err != nil {
		return fmt.Errorf("clear detailed history: %w", err)
	}
	l.notifier.Announce()
	return nil
}

// Today formats the ledger's current date the way group dates are stored.
func (l *Ledger) Today() string {
	return l.now().Format(dateLayout)
}

func conditionNames(r analysis.Result, max int) []string {
	names := make([]string, 0, max)
	for _, c := range r.Conditions {
		if len(names) == max {
			break
		}
		names = append(names, c.Name)
	}
	return names
}
