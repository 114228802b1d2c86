package pgstore

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/eida/federator/internal/routing"
	"github.com/eida/federator/internal/seedid"
)

// Resolve implements routing.Store. Wildcards are translated to SQL LIKE
// patterns ('*' -> '%', '?' -> '_') and matched against currently-known
// channel epochs; each candidate channel epoch is intersected both with the
// request window and with its routing validity window, per spec.md §3's
// routing-fact definition. Results are grouped by endpoint URL.
func (s *Store) Resolve(ctx context.Context, selectors []routing.Selector, service seedid.Service) ([]routing.Group, error) {
	groupsByURL := make(map[string]*routing.Group)

	for _, sel := range selectors {
		rows, err := s.pool.Query(ctx, resolveQuery,
			string(service),
			toLikePattern(sel.Net), toLikePattern(sel.Sta),
			toLikePattern(sel.Loc), toLikePattern(sel.Cha),
			sel.Window.Start, sel.Window.End,
		)
		if err != nil {
			return nil, errors.Wrap(err, "querying routing catalog")
		}

		err = func() error {
			defer rows.Close()
			for rows.Next() {
				var (
					net, sta, loc, cha string
					start, end         time.Time
					validFrom, validTo time.Time
					url                string
					isPrimary          bool
				)
				if err := rows.Scan(&net, &sta, &loc, &cha, &start, &end,
					&url, &isPrimary, &validFrom, &validTo); err != nil {
					return errors.Wrap(err, "scanning routing row")
				}

				epoch := seedid.StreamEpoch{Net: net, Sta: sta, Loc: loc, Cha: cha,
					Start: start, End: end}

				// Intersect the channel epoch with both the request window
				// and the routing validity window (spec.md §3).
				got, ok := epoch.Intersect(sel.Window.Start, sel.Window.End)
				if !ok {
					continue
				}
				got, ok = got.Intersect(validFrom, validTo)
				if !ok {
					continue
				}

				g, ok := groupsByURL[url]
				if !ok {
					g = &routing.Group{Service: service, URL: url, Primary: isPrimary}
					groupsByURL[url] = g
				}
				g.Epochs = append(g.Epochs, got)
			}
			return rows.Err()
		}()
		if err != nil {
			return nil, err
		}
	}

	groups := make([]routing.Group, 0, len(groupsByURL))
	for _, g := range groupsByURL {
		groups = append(groups, *g)
	}
	routing.SortGroups(groups)
	return groups, nil
}

// resolveQuery joins channel_epochs, routes, and endpoints, filtering by
// service and by the two dominant access-pattern columns named in spec.md
// §4.2: (service, net, sta, cha, time).
const resolveQuery = `
SELECT ce.net, ce.sta, ce.loc, ce.cha, ce.start_time, ce.end_time,
       e.url, r.is_primary, r.valid_from, r.valid_to
FROM channel_epochs ce
JOIN routes r ON r.channel_epoch_id = ce.id
JOIN endpoints e ON e.id = r.endpoint_id
WHERE e.service = $1
  AND ce.net ILIKE $2 ESCAPE '\'
  AND ce.sta ILIKE $3 ESCAPE '\'
  AND ce.loc ILIKE $4 ESCAPE '\'
  AND ce.cha ILIKE $5 ESCAPE '\'
  AND ce.start_time < $7
  AND ce.end_time > $6
`

// toLikePattern converts FDSN wildcards ('*' any run, '?' single char) into
// a SQL LIKE pattern, escaping LIKE metacharacters already present in the
// input so literal codes containing '%' or '_' are never mis-matched.
func toLikePattern(code string) string {
	if code == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range code {
		switch r {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
