package booking_tools

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/teemow/tripbooker/internal/booking"
)

func TestIntArg(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    int
		wantErr bool
	}{
		{"missing", nil, 0, false},
		{"json number", float64(3), 3, false},
		{"fraction", 2.5, 0, true},
		{"numeric string", " 4 ", 4, false},
		{"empty string", "", 0, false},
		{"word", "two", 0, true},
		{"bool", true, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]interface{}{}
			if tt.value != nil {
				args["n"] = tt.value
			}
			got, err := intArg(args, "n")
			if (err != nil) != tt.wantErr {
				t.Fatalf("intArg() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("intArg() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestChildrenAgeArg(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    string
		wantErr bool
	}{
		{"missing", nil, "", false},
		{"string", "0, 7,12", "0,7,12", false},
		{"trailing comma", "5,", "5", false},
		{"array of numbers", []interface{}{float64(3), float64(10)}, "3,10", false},
		{"array of strings", []interface{}{"3", "10"}, "3,10", false},
		{"adult age", "18", "", true},
		{"negative", []interface{}{float64(-1)}, "", true},
		{"not a number", "baby", "", true},
		{"object", map[string]interface{}{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]interface{}{}
			if tt.value != nil {
				args["children_age"] = tt.value
			}
			got, err := childrenAgeArg(args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("childrenAgeArg() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("childrenAgeArg() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHotelSearchParamsFromArgs(t *testing.T) {
	args := map[string]interface{}{
		"dest_id":          "-2167973",
		"search_type":      "CITY",
		"arrival_date":     "2026-11-01",
		"departure_date":   "2026-11-04",
		"adults":           float64(2),
		"room_qty":         "1",
		"children_age":     "6",
		"currency_code":    "gbp",
		"location":         "GB",
		"languagecode":     "en-gb",
		"temperature_unit": "f",
		"units":            "imperial",
		"page_number":      float64(2),
	}

	got, err := hotelSearchParamsFromArgs(args)
	if err != nil {
		t.Fatalf("hotelSearchParamsFromArgs() error = %v", err)
	}
	want := booking.HotelSearchParams{
		DestID:          "-2167973",
		SearchType:      "CITY",
		ArrivalDate:     "2026-11-01",
		DepartureDate:   "2026-11-04",
		Adults:          2,
		ChildrenAge:     "6",
		RoomQty:         1,
		CurrencyCode:    "GBP",
		Location:        "GB",
		LanguageCode:    "en-gb",
		TemperatureUnit: "f",
		Units:           "imperial",
		PageNumber:      2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hotelSearchParamsFromArgs() mismatch (-want +got):\n%s", diff)
	}
}

func TestHotelSearchParamsFromArgs_Invalid(t *testing.T) {
	base := func() map[string]interface{} {
		return map[string]interface{}{
			"dest_id":        "-2167973",
			"search_type":    "CITY",
			"arrival_date":   "2026-11-01",
			"departure_date": "2026-11-04",
		}
	}

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"missing search type", func(a map[string]interface{}) { delete(a, "search_type") }},
		{"blank arrival", func(a map[string]interface{}) { a["arrival_date"] = " " }},
		{"bad date", func(a map[string]interface{}) { a["arrival_date"] = "01/11/2026" }},
		{"departure before arrival", func(a map[string]interface{}) { a["departure_date"] = "2026-10-30" }},
		{"same day", func(a map[string]interface{}) { a["departure_date"] = "2026-11-01" }},
		{"fractional adults", func(a map[string]interface{}) { a["adults"] = 1.5 }},
		{"negative rooms", func(a map[string]interface{}) { a["room_qty"] = float64(-1) }},
		{"bad children", func(a map[string]interface{}) { a["children_age"] = "x" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := base()
			tt.mutate(args)
			if _, err := hotelSearchParamsFromArgs(args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestHotelName(t *testing.T) {
	tests := []struct {
		hotel map[string]interface{}
		want  string
	}{
		{map[string]interface{}{"property": map[string]interface{}{"name": "Casa Azul"}}, "Casa Azul"},
		{map[string]interface{}{"hotel_name": "Pension Sol"}, "Pension Sol"},
		{map[string]interface{}{"property": "broken"}, "the selected hotel"},
		{map[string]interface{}{}, "the selected hotel"},
	}
	for _, tt := range tests {
		if got := hotelName(tt.hotel); got != tt.want {
			t.Errorf("hotelName(%v) = %q, want %q", tt.hotel, got, tt.want)
		}
	}
}
