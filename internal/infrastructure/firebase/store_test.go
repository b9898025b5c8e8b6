package firebase

import (
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"horizon/internal/infrastructure/documents"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantNotFound bool
	}{
		{"not found", status.Error(codes.NotFound, "no such document"), true},
		{"already exists", status.Error(codes.AlreadyExists, "exists"), false},
		{"plain error", errors.New("network down"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, "get document %s", "d1")
			if got := errors.Is(err, documents.ErrDocumentNotFound); got != tt.wantNotFound {
				t.Errorf("errors.Is(ErrDocumentNotFound) = %v, want %v (err = %v)", got, tt.wantNotFound, err)
			}
			if !tt.wantNotFound && !errors.Is(err, tt.err) {
				t.Errorf("original error not wrapped: %v", err)
			}
		})
	}
}

func TestSortOldestFirst(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	docs := []*documents.Document{
		{ID: "c", CreatedAt: base.Add(time.Minute)},
		{ID: "b", CreatedAt: base},
		{ID: "a", CreatedAt: base},
	}

	sortOldestFirst(docs)

	var got []string
	for _, d := range docs {
		got = append(got, d.ID)
	}
	if want := "a,b,c"; strings.Join(got, ",") != want {
		t.Errorf("order = %v, want %s", got, want)
	}
}
