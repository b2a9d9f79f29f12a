package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/StormyOasis/linsta-sub001/internal/domain"
)

const suggestSize = 8

type searchServiceImpl struct {
	*base
}

// NewSearchService creates the search service.
func NewSearchService(deps Deps, opts Options) SearchService {
	return &searchServiceImpl{base: newBase(deps, opts)}
}

// Posts searches post documents. A term starting with '#' matches the
// hashtag field only.
func (s *searchServiceImpl) Posts(ctx context.Context, term string, cursor *domain.Cursor, size int) (*domain.PostPage, error) {
	term = strings.TrimSpace(term)
	if term == "" || term == "#" {
		return nil, invalidf("search term is required")
	}
	return s.Deps.Posts.Search(ctx, term, cursor, s.pageSize(size))
}

func (s *searchServiceImpl) Profiles(ctx context.Context, term string, size int) ([]domain.Profile, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, invalidf("search term is required")
	}
	return s.Deps.Profiles.Search(ctx, term, s.pageSize(size))
}

// Suggest backs the search box: matching profiles and popular hashtags
// sharing the typed prefix.
func (s *searchServiceImpl) Suggest(ctx context.Context, term string) (*domain.Suggestions, error) {
	term = strings.TrimSpace(term)
	out := &domain.Suggestions{Profiles: []domain.Profile{}, Hashtags: []string{}}
	if term == "" {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if !strings.HasPrefix(term, "#") {
		g.Go(func() error {
			profiles, err := s.Deps.Profiles.Search(gctx, term, suggestSize)
			if err == nil {
				out.Profiles = profiles
			}
			return err
		})
	}
	g.Go(func() error {
		tags, err := s.Deps.Posts.TopHashtags(gctx, strings.TrimPrefix(term, "#"), suggestSize)
		if err == nil {
			out.Hashtags = tags
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
