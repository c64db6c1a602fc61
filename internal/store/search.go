package store

import (
	"context"
	"fmt"

	"github.com/olivere/elastic/v7"

	"github.com/kailas-cloud/trackdex/internal/domain"
	"github.com/kailas-cloud/trackdex/internal/domain/query"
)

// SearchRuns executes a filtered, ordered, paginated run search and returns
// the page plus the next page token (empty when the results are exhausted).
//
// Only experimentIDs[0] is scoped even when several ids are supplied;
// multi-experiment search is not implemented.
func (s *Store) SearchRuns(
	ctx context.Context,
	experimentIDs []string,
	filter string,
	view domain.ViewType,
	maxResults int,
	orderBy []string,
	pageToken string,
	columnWhitelist []string,
) ([]domain.Run, string, error) {
	if maxResults > s.cfg.MaxResultThreshold {
		return nil, "", domain.Errorf(domain.ErrResourceLimitExceeded,
			"requested page size %d exceeds the limit of %d", maxResults, s.cfg.MaxResultThreshold)
	}
	if maxResults <= 0 {
		maxResults = s.cfg.DefaultPageSize
	}
	if len(experimentIDs) == 0 {
		return nil, "", domain.Errorf(domain.ErrInvalidArgument, "at least one experiment id is required")
	}

	offset, err := decodePageToken(pageToken)
	if err != nil {
		return nil, "", err
	}
	clauses, err := query.ParseFilter(filter)
	if err != nil {
		return nil, "", err
	}
	orderKeys, err := query.ParseOrderBy(orderBy)
	if err != nil {
		return nil, "", err
	}

	boolQ, err := buildSearchQuery(experimentIDs[0], view.Stages(), clauses)
	if err != nil {
		return nil, "", err
	}

	src := elastic.NewSearchSource().
		Query(boolQ).
		SortBy(buildSort(orderKeys)...).
		From(offset).
		Size(maxResults)

	useInnerHits := false
	if len(columnWhitelist) > 0 {
		shoulds, fsc := buildColumnWhitelist(columnWhitelist)
		if len(shoulds) > 0 {
			boolQ.Should(shoulds...).MinimumNumberShouldMatch(0)
			src.FetchSourceContext(fsc)
			useInnerHits = true
		}
	}

	res, err := s.client.Search(ctx, s.cfg.RunsIndex, src)
	if err != nil {
		return nil, "", fmt.Errorf("search runs: %w", err)
	}

	runs := make([]domain.Run, 0, maxResults)
	if res.Hits != nil {
		for _, hit := range res.Hits.Hits {
			var view docView = sourceView{hit: hit}
			if useInnerHits {
				view = innerHitsView{hit: hit}
			}
			run, err := view.run()
			if err != nil {
				return nil, "", err
			}
			runs = append(runs, run)
		}
	}

	// A full page means there may be more; a short page terminates. A backend
	// returning fewer hits than requested for any other reason would end
	// pagination early here, which matches the documented behavior.
	nextToken := ""
	if len(runs) == maxResults {
		nextToken = encodePageToken(offset + maxResults)
	}
	return runs, nextToken, nil
}
