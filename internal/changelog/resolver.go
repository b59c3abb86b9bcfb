package changelog

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"jira-quality/internal/jira"
)

const (
	statusField = "status"

	bulkBatchSize    = 1000
	maxBulkPages     = 100
	issuePageSize    = 100
	maxIssuePages    = 50
	defaultBulkLimit = 1000
)

// Source is the subset of the Jira client the resolver needs.
type Source interface {
	BulkChangelog(ctx context.Context, req jira.BulkChangelogRequest) (*jira.BulkChangelogResponse, error)
	IssueChangelog(ctx context.Context, key string, startAt, maxResults int) (*jira.ChangelogPage, error)
}

// IssueRef identifies an issue for resolution. ID is optional; the bulk API
// answers with internal IDs, so providing it lets responses be matched back.
type IssueRef struct {
	ID  string
	Key string
}

// Resolver finds when issues last transitioned into a status: bulk lookup
// first, per-issue changelog for whatever the bulk lookup missed.
type Resolver struct {
	source Source
	store  Store
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithStore caches resolved values.
func WithStore(s Store) Option {
	return func(r *Resolver) { r.store = s }
}

// NewResolver creates a resolver. A nil source resolves nothing.
func NewResolver(source Source, opts ...Option) *Resolver {
	r := &Resolver{source: source}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StatusSince returns, per issue key, the latest transition into status.
// Issues that cannot be resolved are absent from the map. Remote failures are
// logged and absorbed.
func (r *Resolver) StatusSince(ctx context.Context, refs []IssueRef, status string) map[string]time.Time {
	resolved := make(map[string]time.Time)
	if strings.TrimSpace(status) == "" || len(refs) == 0 {
		return resolved
	}
	logger := log.With().Str("component", "changelog").Str("status", status).Logger()

	pending := make([]IssueRef, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if ref.Key == "" {
			continue
		}
		if _, dup := seen[ref.Key]; dup {
			continue
		}
		seen[ref.Key] = struct{}{}
		if r.store != nil {
			if t, err := r.store.Get(ctx, status, ref.Key); err == nil {
				resolved[ref.Key] = t
				continue
			}
		}
		pending = append(pending, ref)
	}
	if len(pending) == 0 || r.source == nil {
		return resolved
	}

	fromBulk := r.bulk(ctx, pending, status)
	var fallback []IssueRef
	for _, ref := range pending {
		if t, ok := fromBulk[ref.Key]; ok {
			r.remember(ctx, status, ref.Key, t, resolved)
			continue
		}
		fallback = append(fallback, ref)
	}

	for _, ref := range fallback {
		if ctx.Err() != nil {
			break
		}
		if t, ok := r.perIssue(ctx, ref.Key, status); ok {
			r.remember(ctx, status, ref.Key, t, resolved)
		}
	}

	logger.Debug().
		Int("requested", len(seen)).
		Int("bulk", len(fromBulk)).
		Int("fallback", len(fallback)).
		Int("resolved", len(resolved)).
		Msg("Resolved status-since")
	return resolved
}

func (r *Resolver) remember(ctx context.Context, status, key string, t time.Time, into map[string]time.Time) {
	into[key] = t
	if r.store == nil {
		return
	}
	if err := r.store.Set(ctx, status, key, t); err != nil {
		log.Debug().Err(err).Str("issue", key).Msg("Failed to cache status-since")
	}
}

// bulk queries the bulk changelog endpoint in batches and returns the latest
// transition per issue key.
func (r *Resolver) bulk(ctx context.Context, refs []IssueRef, status string) map[string]time.Time {
	out := make(map[string]time.Time)
	for start := 0; start < len(refs); start += bulkBatchSize {
		batch := refs[start:min(start+bulkBatchSize, len(refs))]

		idToKey := make(map[string]string, len(batch)*2)
		ids := make([]string, 0, len(batch))
		for _, ref := range batch {
			idToKey[ref.Key] = ref.Key
			if ref.ID != "" {
				idToKey[ref.ID] = ref.Key
				ids = append(ids, ref.ID)
			} else {
				ids = append(ids, ref.Key)
			}
		}

		token := ""
		for page := 0; page < maxBulkPages; page++ {
			resp, err := r.source.BulkChangelog(ctx, jira.BulkChangelogRequest{
				IssueIDsOrKeys: ids,
				FieldIDs:       []string{statusField},
				MaxResults:     defaultBulkLimit,
				NextPageToken:  token,
			})
			if err != nil {
				log.Warn().Err(err).Int("batch_size", len(batch)).Msg("Bulk changelog lookup failed, falling back to per-issue changelog")
				break
			}
			for _, entry := range resp.IssueChangeLogs {
				key, ok := idToKey[entry.IssueID]
				if !ok {
					continue
				}
				if t, found := LatestTransition(entry.ChangeHistories, status); found {
					if prev, had := out[key]; !had || t.After(prev) {
						out[key] = t
					}
				}
			}
			if resp.NextPageToken == "" || resp.NextPageToken == token {
				break
			}
			token = resp.NextPageToken
		}
	}
	return out
}

// perIssue walks one issue's offset-paginated changelog.
func (r *Resolver) perIssue(ctx context.Context, key, status string) (time.Time, bool) {
	var (
		latest  time.Time
		found   bool
		startAt int
	)
	for page := 0; page < maxIssuePages; page++ {
		resp, err := r.source.IssueChangelog(ctx, key, startAt, issuePageSize)
		if err != nil {
			log.Debug().Err(err).Str("issue", key).Msg("Per-issue changelog lookup failed")
			return latest, found
		}
		entries := resp.Entries()
		if t, ok := LatestTransition(entries, status); ok && (!found || t.After(latest)) {
			latest, found = t, true
		}

		startAt += len(entries)
		switch {
		case len(entries) == 0, resp.IsLast:
			return latest, found
		case resp.Total > 0 && startAt >= resp.Total:
			return latest, found
		case resp.Total == 0 && len(entries) < issuePageSize:
			return latest, found
		}
	}
	return latest, found
}

// LatestTransition returns the most recent history entry that moved the
// status field to status. Entries with unparsable timestamps are skipped.
func LatestTransition(histories []jira.History, status string) (time.Time, bool) {
	target := strings.ToLower(strings.TrimSpace(status))
	var (
		latest time.Time
		found  bool
	)
	for _, h := range histories {
		if !h.Created.Valid {
			continue
		}
		for _, item := range h.Items {
			if !strings.EqualFold(strings.TrimSpace(item.Field), statusField) {
				continue
			}
			if strings.ToLower(strings.TrimSpace(item.Target())) != target {
				continue
			}
			if !found || h.Created.Time.After(latest) {
				latest, found = h.Created.Time, true
			}
		}
	}
	return latest, found
}

// EmbeddedStatusSince reads the transition from a changelog already embedded
// in the issue.
func EmbeddedStatusSince(issue jira.Issue, status string) (time.Time, bool) {
	if issue.Changelog == nil {
		return time.Time{}, false
	}
	return LatestTransition(issue.Changelog.Histories, status)
}
