package repositories

import (
	"strings"
	"testing"

	"workfinder/internal/models"
)

func TestBuildSearchQueryDefaults(t *testing.T) {
	q, args := BuildSearchQuery(&models.ProjectFilter{})

	if !strings.Contains(q, "status = $1") {
		t.Errorf("нет фильтра по статусу: %s", q)
	}
	if args[0] != models.ProjectOpen {
		t.Errorf("статус по умолчанию %v, ждали open", args[0])
	}
	if !strings.Contains(q, "ORDER BY created_at desc") {
		t.Errorf("сортировка по умолчанию: %s", q)
	}
	// статус + limit + offset
	if len(args) != 3 {
		t.Fatalf("args = %v", args)
	}
	if args[1] != 20 {
		t.Errorf("limit по умолчанию %v", args[1])
	}
}

func TestBuildSearchQueryAllFilters(t *testing.T) {
	lat, lon := 55.75, 37.62
	f := &models.ProjectFilter{
		CategoryID: 3,
		City:       "Москва",
		PriceMin:   1_000_00,
		PriceMax:   50_000_00,
		Query:      "сайт",
		Lat:        &lat,
		Lon:        &lon,
		RadiusKM:   25,
		SortBy:     "budget_max",
		Order:      "asc",
		Limit:      50,
		Offset:     10,
	}
	q, args := BuildSearchQuery(f)

	for _, frag := range []string{
		"category_id = $2",
		"city ILIKE $3",
		"budget_max >= $4",
		"budget_min <= $5",
		"(title ILIKE $6 OR description ILIKE $6)",
		"lat IS NOT NULL AND lon IS NOT NULL",
		"ORDER BY budget_max asc",
	} {
		if !strings.Contains(q, frag) {
			t.Errorf("нет фрагмента %q в %s", frag, q)
		}
	}

	// статус, категория, город, две цены, текст, lat, lon, радиус, limit, offset
	if len(args) != 11 {
		t.Fatalf("args (%d) = %v", len(args), args)
	}
	if args[5] != "%сайт%" {
		t.Errorf("текстовый шаблон %v", args[5])
	}
	if args[10] != 10 {
		t.Errorf("offset %v", args[10])
	}
}

func TestBuildSearchQueryRejectsUnknownSort(t *testing.T) {
	q, _ := BuildSearchQuery(&models.ProjectFilter{SortBy: "id; DROP TABLE projects"})
	if !strings.Contains(q, "ORDER BY created_at desc") {
		t.Errorf("неизвестная сортировка не отброшена: %s", q)
	}
}

func TestBuildSearchQueryLimitCap(t *testing.T) {
	_, args := BuildSearchQuery(&models.ProjectFilter{Limit: 10_000})
	if args[len(args)-2] != 20 {
		t.Errorf("завышенный limit не сброшен: %v", args)
	}
}
