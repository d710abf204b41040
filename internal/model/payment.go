package model

import (
	"sort"
	"time"
)

type Payment struct {
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	Expiration time.Time `json:"expiration"`
}

// IsExpiredAt reports whether the payment expired strictly before the given day.
func (p *Payment) IsExpiredAt(today time.Time) bool {
	return p.Expiration.Before(DateOf(today))
}

// Roster holds the payments of one load, keyed by username.
type Roster struct {
	payments map[string]*Payment
}

func NewRoster() *Roster {
	return &Roster{payments: make(map[string]*Payment)}
}

// Add inserts the payment unless its username is already present.
func (r *Roster) Add(p *Payment) bool {
	if _, ok := r.payments[p.Username]; ok {
		return false
	}
	r.payments[p.Username] = p
	return true
}

func (r *Roster) GetByUsername(username string) (*Payment, bool) {
	p, ok := r.payments[username]
	return p, ok
}

func (r *Roster) Count() int {
	return len(r.payments)
}

func (r *Roster) Usernames() []string {
	names := make([]string, 0, len(r.payments))
	for name := range r.payments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filter returns the payments matching fn, ordered by expiration then username.
func (r *Roster) Filter(fn func(*Payment) bool) []*Payment {
	res := make([]*Payment, 0)
	for _, p := range r.payments {
		if fn(p) {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Expiration.Equal(res[j].Expiration) {
			return res[i].Expiration.Before(res[j].Expiration)
		}
		return res[i].Username < res[j].Username
	})
	return res
}

// DateOf truncates t to its calendar day, keeping the day as seen in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
