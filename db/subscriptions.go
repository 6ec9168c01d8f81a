package db

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/electmap/newsletter-backend/models"
)

// ErrWriteFailed reports a write that exhausted its retries.
var ErrWriteFailed = errors.New("db: write failed after retries")

// KeyPrefix namespaces every subscription key in the backend. Keys take
// the form "newsletter:<lowercased-email>".
const KeyPrefix = "newsletter:"

// SubscriptionDB implements subscribe/unsubscribe/list semantics on top
// of a Resilient store. It is the sole writer of subscription records.
type SubscriptionDB struct {
	store *Resilient
}

// NewSubscriptionDB returns a SubscriptionDB backed by kv with the
// default retry schedule.
func NewSubscriptionDB(kv KV) *SubscriptionDB {
	return &SubscriptionDB{store: NewResilient(kv)}
}

// NewSubscriptionDBWithStore returns a SubscriptionDB on an existing
// Resilient wrapper, for callers that need a custom retry schedule.
func NewSubscriptionDBWithStore(store *Resilient) *SubscriptionDB {
	return &SubscriptionDB{store: store}
}

func subscriberKey(email string) string {
	return KeyPrefix + email
}

// Subscribe records a new subscriber. Any existing record for the
// normalized address, active or not, answers alreadySubscribed=true and
// is left untouched; records are never reactivated through this path.
func (s *SubscriptionDB) Subscribe(ctx context.Context, email string) (alreadySubscribed bool, err error) {
	email = models.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return false, &models.ValidationError{Message: "a valid email address is required"}
	}
	key := subscriberKey(email)
	if existing := s.store.SafeGet(ctx, key, ""); existing != "" {
		return true, nil
	}
	record := models.SubscriptionRecord{
		Email:        email,
		SubscribedAt: time.Now().UTC(),
		Active:       true,
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	// The subscribe write bypasses SafeSet: a lost signup must surface
	// to the caller, unlike the list path which degrades silently.
	if err := s.store.Set(ctx, key, string(raw)); err != nil {
		return false, &BackendFailure{Op: "subscribe", Err: err}
	}
	// Read-after-write verification. The backend does not guarantee
	// read-your-writes consistency, so this is advisory: the result is
	// logged but does not gate the response.
	if back := s.store.SafeGet(ctx, key, ""); back == "" {
		log.Printf("subscription for %s not readable after write", email)
	}
	return false, nil
}

// Unsubscribe marks the record for email inactive and stamps the time.
// The record itself is preserved, including its original subscription
// time. Returns ErrNoRecord if the address was never subscribed.
func (s *SubscriptionDB) Unsubscribe(ctx context.Context, email string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return &models.ValidationError{Message: "an email address is required"}
	}
	key := subscriberKey(email)
	raw := s.store.SafeGet(ctx, key, "")
	if raw == "" {
		return ErrNoRecord
	}
	var record models.SubscriptionRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return err
	}
	now := time.Now().UTC()
	record.Active = false
	record.UnsubscribedAt = &now
	updated, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if !s.store.SafeSet(ctx, key, string(updated)) {
		return &BackendFailure{Op: "unsubscribe", Err: ErrWriteFailed}
	}
	return nil
}

// List returns every active subscription record, in whatever order the
// backend yields them. A degraded backend yields an empty list rather
// than an error.
func (s *SubscriptionDB) List(ctx context.Context) []models.SubscriptionRecord {
	pairs, degraded := s.store.SafeGetByPrefix(ctx, KeyPrefix)
	if degraded {
		log.Printf("subscriber list degraded: backend unreachable, serving empty list")
	}
	active := make([]models.SubscriptionRecord, 0, len(pairs))
	for key, raw := range pairs {
		var record models.SubscriptionRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			log.Printf("skipping unparseable record at %s: %v", key, err)
			continue
		}
		if record.Active {
			active = append(active, record)
		}
	}
	return active
}

// ActiveEmails returns the addresses of every active subscriber.
func (s *SubscriptionDB) ActiveEmails(ctx context.Context) []string {
	records := s.List(ctx)
	emails := make([]string, 0, len(records))
	for _, record := range records {
		emails = append(emails, record.Email)
	}
	return emails
}
