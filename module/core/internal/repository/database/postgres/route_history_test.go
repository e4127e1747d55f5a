package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

var historyColumns = []string{
	"id", "user_id", "origin_name", "origin_address", "origin_lat", "origin_lng",
	"destination_name", "destination_address", "destination_lat", "destination_lng",
	"duration_min", "distance_m", "is_favorite", "used_count", "created_at", "last_used_at",
}

func testEntry(ts time.Time) *domain.RouteHistoryEntry {
	return &domain.RouteHistoryEntry{
		ID:          "0b7d4b8e-4a57-4c47-9f0e-2d1f3c1c9a10",
		UserID:      "user-1",
		Origin:      domain.Place{Name: "집", Address: "서울 중구", Position: domain.Coordinate{Lat: 37.5665, Lon: 126.978}},
		Destination: domain.Place{Name: "서울역", Address: "서울 용산구", Position: domain.Coordinate{Lat: 37.5547, Lon: 126.9707}},
		DurationMin: 18,
		DistanceM:   1500,
		LastUsedAt:  ts,
	}
}

func TestRouteHistorySave_RepeatIncrementsCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	first := time.Unix(1715000000, 0)
	now := time.Unix(1715003456, 0)
	e := testEntry(now)
	mock.ExpectQuery(`INSERT INTO route_history (.+) ON CONFLICT \(user_id, origin_name, destination_name\) DO UPDATE SET used_count = route_history.used_count \+ 1`).
		WithArgs(e.ID, "user-1", "집", "서울 중구", 37.5665, 126.978, "서울역", "서울 용산구", 37.5547, 126.9707, 18, 1500, now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_favorite", "used_count", "created_at"}).
			AddRow("existing-id", true, 4, first))

	repo := NewRouteHistoryRepo(db)
	if err := repo.Save(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != "existing-id" || e.UsedCount != 4 || !e.IsFavorite {
		t.Errorf("expected the stored entry to be reflected, got %+v", e)
	}
	if !e.CreatedAt.Equal(first) {
		t.Errorf("expected created_at %v, got %v", first, e.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRouteHistoryRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	ts := time.Unix(1715003456, 0)
	mock.ExpectQuery(`SELECT (.+) FROM route_history WHERE user_id = (.+) ORDER BY last_used_at DESC LIMIT (.+)`).
		WithArgs("user-1", 10).
		WillReturnRows(sqlmock.NewRows(historyColumns).
			AddRow("id-1", "user-1", "집", "", 37.5665, 126.978, "서울역", "", 37.5547, 126.9707, 18, 1500, false, 2, ts, ts))

	repo := NewRouteHistoryRepo(db)
	routes, err := repo.Recent(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected 1 route, got %d", len(routes))
	}
	if routes[0].Destination.Name != "서울역" || routes[0].Destination.Position.Lat != 37.5547 || routes[0].UsedCount != 2 {
		t.Errorf("unexpected route %+v", routes[0])
	}
}

func TestRouteHistoryFrequent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`SELECT (.+) FROM route_history WHERE user_id = (.+) ORDER BY used_count DESC`).
		WithArgs("user-1", 5).
		WillReturnRows(sqlmock.NewRows(historyColumns))

	repo := NewRouteHistoryRepo(db)
	routes, err := repo.Frequent(context.Background(), "user-1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 0 {
		t.Errorf("expected no routes, got %d", len(routes))
	}
}

func TestRouteHistoryFavorites(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	ts := time.Unix(1715003456, 0)
	mock.ExpectQuery(`SELECT (.+) FROM route_history WHERE user_id = (.+) AND is_favorite ORDER BY last_used_at DESC`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(historyColumns).
			AddRow("id-1", "user-1", "집", "", 37.5665, 126.978, "서울역", "", 37.5547, 126.9707, 18, 1500, true, 7, ts, ts))

	repo := NewRouteHistoryRepo(db)
	routes, err := repo.Favorites(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(routes) != 1 || !routes[0].IsFavorite {
		t.Errorf("unexpected favorites %+v", routes)
	}
}

func TestRouteHistorySetFavorite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`UPDATE route_history SET is_favorite = (.+) WHERE id = (.+) AND user_id = (.+)`).
		WithArgs("id-1", "user-1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE route_history SET is_favorite`).
		WithArgs("id-2", "user-1", false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewRouteHistoryRepo(db)
	if err := repo.SetFavorite(context.Background(), "user-1", "id-1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.SetFavorite(context.Background(), "user-1", "id-2", false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRouteHistoryDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(`DELETE FROM route_history WHERE id = (.+) AND user_id = (.+)`).
		WithArgs("id-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM route_history`).
		WithArgs("id-1", "user-2").
		WillReturnError(errors.New("connection reset"))

	repo := NewRouteHistoryRepo(db)
	if err := repo.Delete(context.Background(), "user-1", "id-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(context.Background(), "user-2", "id-1"); err == nil {
		t.Fatal("expected error")
	}
}
