package repositories

import (
	"errors"
	"strings"
	"testing"

	"travel-time-service/internal/domain"
)

func TestParseSeed(t *testing.T) {
	data := []byte(`[
		{"id": "sthlm-1", "namn": "Skogsbo", "kommun": "Stockholm", "latitud": 59.3, "longitud": 18.1},
		{"id": " sthlm-2 ", "namn": "Ängsgården", "kommun": "Nacka", "latitud": null, "longitud": null}
	]`)

	items, err := ParseSeed(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Coordinates == nil || items[0].Coordinates.Lat != 59.3 {
		t.Errorf("first item coordinates = %+v", items[0].Coordinates)
	}
	if items[1].ID != "sthlm-2" || items[1].Coordinates != nil {
		t.Errorf("second item = %+v", items[1])
	}
}

func TestParseSeedRejects(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{name: "not an array", data: `{"id":"x"}`, want: "parse seed"},
		{name: "empty id", data: `[{"id":"","namn":"a","kommun":"b"}]`, want: "id cannot be empty"},
		{name: "duplicate id", data: `[{"id":"x","namn":"a","kommun":"b"},{"id":"x","namn":"c","kommun":"d"}]`, want: "duplicate id"},
		{name: "missing name", data: `[{"id":"x","namn":" ","kommun":"b"}]`, want: "name and municipality"},
		{name: "half coordinates", data: `[{"id":"x","namn":"a","kommun":"b","latitud":59.3}]`, want: "both be set"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tc.data))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestParseSeedRejectsOutOfRangeCoordinates(t *testing.T) {
	_, err := ParseSeed([]byte(`[{"id":"x","namn":"a","kommun":"b","latitud":99,"longitud":18}]`))

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
