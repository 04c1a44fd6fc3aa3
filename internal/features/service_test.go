package features

import (
	"context"
	"testing"
	"time"
)

type stubRepo struct {
	byName  map[string]Feature
	created []string
}

func (s *stubRepo) ListFeatures(ctx context.Context) ([]Feature, error) { return nil, nil }

func (s *stubRepo) GetFeature(ctx context.Context, id int64) (Feature, error) {
	return Feature{}, ErrNotFound
}

func (s *stubRepo) CreateFeature(ctx context.Context, name, description string) (Feature, error) {
	s.created = append(s.created, name)
	return Feature{ID: int64(len(s.created)), Name: name, Description: description, CreatedAt: time.Now()}, nil
}

func (s *stubRepo) UpdateFeature(ctx context.Context, id int64, name, description string) (Feature, error) {
	return Feature{ID: id, Name: name, Description: description}, nil
}

func (s *stubRepo) DeleteFeature(ctx context.Context, id int64) error { return nil }

func (s *stubRepo) GetFeatureByName(ctx context.Context, name string) (Feature, error) {
	f, ok := s.byName[name]
	if !ok {
		return Feature{}, ErrNotFound
	}
	return f, nil
}

func TestCreateFeatureTrimsAndRequiresName(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	if _, err := svc.CreateFeature(context.Background(), "   ", "x"); err == nil {
		t.Fatal("expected an error for a blank name")
	}
	f, err := svc.CreateFeature(context.Background(), "  reports ", " dashboards ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.Name != "reports" || f.Description != "dashboards" {
		t.Fatalf("unexpected feature: %+v", f)
	}
}

func TestFeatureIDByName(t *testing.T) {
	repo := &stubRepo{byName: map[string]Feature{"reports": {ID: 7, Name: "reports"}}}
	svc := NewService(repo)

	id, err := svc.FeatureIDByName(context.Background(), "reports")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 7 {
		t.Fatalf("id = %d, want 7", id)
	}
	if _, err := svc.FeatureIDByName(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for an unknown feature")
	}
}
