package catalog

import (
	"context"
	"strings"

	"wristwatch-be/internal/apperror"
)

// Service is the authoritative price source for cart and checkout.
// Prices are read on every call; nothing is cached between requests.
type Service interface {
	Lookup(ctx context.Context, id string) (*Watch, error)
	LookupMany(ctx context.Context, ids []string) (map[string]*Watch, error)
}

type service struct {
	repo    Repository
	baseURL string
}

func NewService(repo Repository, baseURL string) Service {
	return &service{repo: repo, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *service) Lookup(ctx context.Context, id string) (*Watch, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.Validation("catalog.lookup", "itemId")
	}

	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Internal("catalog.lookup", err)
	}
	if w == nil {
		return nil, apperror.NotFound("catalog.lookup", "watch not found")
	}
	s.enrich(w)
	return w, nil
}

// LookupMany returns the watches that still exist, keyed by id; missing ids are absent.
func (s *service) LookupMany(ctx context.Context, ids []string) (map[string]*Watch, error) {
	out := make(map[string]*Watch, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	watches, err := s.repo.GetByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, apperror.Internal("catalog.lookupMany", err)
	}
	for _, w := range watches {
		s.enrich(w)
		out[w.ID] = w
	}
	return out, nil
}

func (s *service) enrich(w *Watch) {
	if w.Image != nil && *w.Image != "" {
		w.ImageURL = s.baseURL + "/uploads/" + *w.Image
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
