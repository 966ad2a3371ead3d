package grading

import (
	"fmt"
	"time"
)

// DatedRecord is one grade entry for a (subject, source) pair. Records are
// never edited; corrections arrive as newer records.
type DatedRecord struct {
	ID         int64      `json:"id"`
	Value      float64    `json:"value"`
	ObservedAt time.Time  `json:"observedAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// Source is an externally measurable quantity: a course task or a course part.
// ExpiresAt, when set, caps the expiry of every record of the source.
type Source struct {
	ID        int        `json:"id"`
	Kind      SourceKind `json:"kind"`
	MaxValue  float64    `json:"maxValue"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// TiePolicy orders candidate records.
type TiePolicy string

const (
	TieBest   TiePolicy = "best"
	TieLatest TiePolicy = "latest"
)

// ExpiryPolicy decides how expired records take part in selection.
type ExpiryPolicy string

const (
	ExpiryAny              ExpiryPolicy = "any"
	ExpiryPreferNonExpired ExpiryPolicy = "prefer_non_expired"
	ExpiryNonExpiredOnly   ExpiryPolicy = "non_expired"
)

// SelectPolicy must be given explicitly on every call; its zero value is invalid.
type SelectPolicy struct {
	Tie    TiePolicy    `json:"tie"`
	Expiry ExpiryPolicy `json:"expiry"`
}

// Validate reports whether both parts of the policy are known.
func (p SelectPolicy) Validate() error {
	switch p.Tie {
	case TieBest, TieLatest:
	default:
		return fmt.Errorf("%w: tie %q", ErrInvalidPolicy, p.Tie)
	}
	switch p.Expiry {
	case ExpiryAny, ExpiryPreferNonExpired, ExpiryNonExpiredOnly:
	default:
		return fmt.Errorf("%w: expiry %q", ErrInvalidPolicy, p.Expiry)
	}
	return nil
}

// ParseSelectPolicy accepts snake_case and camelCase spellings.
func ParseSelectPolicy(tie, expiry string) (SelectPolicy, error) {
	p := SelectPolicy{Tie: TiePolicy(tie)}
	switch expiry {
	case "any":
		p.Expiry = ExpiryAny
	case "prefer_non_expired", "preferNonExpired":
		p.Expiry = ExpiryPreferNonExpired
	case "non_expired", "nonExpiredOnly", "non_expired_only":
		p.Expiry = ExpiryNonExpiredOnly
	default:
		p.Expiry = ExpiryPolicy(expiry)
	}
	return p, p.Validate()
}

// effectiveExpiry is the earlier of the record's own expiry and the override.
func effectiveExpiry(own, override *time.Time) *time.Time {
	switch {
	case own == nil:
		return override
	case override == nil:
		return own
	case override.Before(*own):
		return override
	}
	return own
}

func (r DatedRecord) expired(override *time.Time, now time.Time) bool {
	exp := effectiveExpiry(r.ExpiresAt, override)
	return exp != nil && now.After(*exp)
}

// newer orders by observation time, then id.
func newer(a, b *DatedRecord) bool {
	if !a.ObservedAt.Equal(b.ObservedAt) {
		return a.ObservedAt.After(b.ObservedAt)
	}
	return a.ID > b.ID
}

// better orders by value, then recency.
func better(a, b *DatedRecord) bool {
	if a.Value != b.Value {
		return a.Value > b.Value
	}
	return newer(a, b)
}

// Select picks the authoritative record among records. It returns nil when no
// record qualifies, and an error only for an invalid policy.
func Select(records []DatedRecord, policy SelectPolicy, expiry *time.Time, now time.Time) (*DatedRecord, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	wins := better
	if policy.Tie == TieLatest {
		wins = newer
	}

	var live, dead *DatedRecord
	for i := range records {
		r := &records[i]
		if policy.Expiry != ExpiryAny && r.expired(expiry, now) {
			if dead == nil || wins(r, dead) {
				dead = r
			}
			continue
		}
		if live == nil || wins(r, live) {
			live = r
		}
	}

	var picked *DatedRecord
	switch {
	case live != nil:
		picked = live
	case policy.Expiry == ExpiryPreferNonExpired:
		picked = dead
	}
	if picked == nil {
		return nil, nil
	}
	out := *picked
	return &out, nil
}

// SelectSourceValues reduces one subject's records, keyed by task id, to a
// value per task. expiry returns the override of a task's owning course part
// and may be nil. Tasks without a qualifying record are absent.
func SelectSourceValues(records map[int][]DatedRecord, expiry func(taskID int) *time.Time, policy SelectPolicy, now time.Time) (map[int]SourceValue, error) {
	out := make(map[int]SourceValue, len(records))
	for taskID, recs := range records {
		var override *time.Time
		if expiry != nil {
			override = expiry(taskID)
		}
		r, err := Select(recs, policy, override, now)
		if err != nil {
			return nil, err
		}
		if r == nil {
			out[taskID] = Absent()
			continue
		}
		out[taskID] = Present(r.Value)
	}
	return out, nil
}
