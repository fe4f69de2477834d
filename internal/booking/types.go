package booking

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// Destinations is the searchDestination response envelope.
type Destinations struct {
	Status  bool              `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    []json.RawMessage `json:"data"`
}

// HotelSearchResult is the searchHotels response envelope.
type HotelSearchResult struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Data    struct {
		Hotels []json.RawMessage `json:"hotels"`
	} `json:"data"`
}

// Hotels returns the hotel list, never nil.
func (r *HotelSearchResult) Hotels() []json.RawMessage {
	if r == nil || r.Data.Hotels == nil {
		return []json.RawMessage{}
	}
	return r.Data.Hotels
}

// HotelSearchParams are the searchHotels query parameters.
type HotelSearchParams struct {
	DestID          string `json:"dest_id"`
	SearchType      string `json:"search_type"`
	ArrivalDate     string `json:"arrival_date"`   // YYYY-MM-DD
	DepartureDate   string `json:"departure_date"` // YYYY-MM-DD
	Adults          int    `json:"adults,omitempty"`
	ChildrenAge     string `json:"children_age,omitempty"` // comma separated ages
	RoomQty         int    `json:"room_qty,omitempty"`
	CurrencyCode    string `json:"currency_code,omitempty"`
	Location        string `json:"location,omitempty"`
	LanguageCode    string `json:"languagecode,omitempty"`
	TemperatureUnit string `json:"temperature_unit,omitempty"`
	Units           string `json:"units,omitempty"`
	PageNumber      int    `json:"page_number,omitempty"`
}

// Defaults for optional search parameters.
const (
	DefaultAdults          = 1
	DefaultRoomQty         = 1
	DefaultCurrencyCode    = "USD"
	DefaultLocation        = "US"
	DefaultLanguageCode    = "en-us"
	DefaultTemperatureUnit = "c"
	DefaultUnits           = "metric"
	DefaultPageNumber      = 1
)

// WithDefaults returns a copy of p with every unset optional field filled.
func (p HotelSearchParams) WithDefaults() HotelSearchParams {
	if p.Adults <= 0 {
		p.Adults = DefaultAdults
	}
	if p.RoomQty <= 0 {
		p.RoomQty = DefaultRoomQty
	}
	if p.CurrencyCode == "" {
		p.CurrencyCode = DefaultCurrencyCode
	}
	if p.Location == "" {
		p.Location = DefaultLocation
	}
	if p.LanguageCode == "" {
		p.LanguageCode = DefaultLanguageCode
	}
	if p.TemperatureUnit == "" {
		p.TemperatureUnit = DefaultTemperatureUnit
	}
	if p.Units == "" {
		p.Units = DefaultUnits
	}
	if p.PageNumber <= 0 {
		p.PageNumber = DefaultPageNumber
	}
	return p
}

func (p HotelSearchParams) query() url.Values {
	q := url.Values{}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set("dest_id", p.DestID)
	set("search_type", p.SearchType)
	set("arrival_date", p.ArrivalDate)
	set("departure_date", p.DepartureDate)
	set("adults", strconv.Itoa(p.Adults))
	set("children_age", p.ChildrenAge)
	set("room_qty", strconv.Itoa(p.RoomQty))
	set("currency_code", p.CurrencyCode)
	set("location", p.Location)
	set("languagecode", p.LanguageCode)
	set("temperature_unit", p.TemperatureUnit)
	set("units", p.Units)
	set("page_number", strconv.Itoa(p.PageNumber))
	return q
}
