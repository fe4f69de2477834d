package booking_tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/tripbooker/internal/booking"
)

// stringArg returns a trimmed string argument, or "" when it is missing or
// not a string
func stringArg(args map[string]interface{}, key string) string {
	value, _ := args[key].(string)
	return strings.TrimSpace(value)
}

// intArg accepts JSON numbers and numeric strings. Missing arguments yield 0.
func intArg(args map[string]interface{}, key string) (int, error) {
	switch v := args[key].(type) {
	case nil:
		return 0, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", key)
	}
}

// childrenAgeArg accepts either an array of ages or a comma separated string
// and returns the comma separated form the Booking API expects.
func childrenAgeArg(args map[string]interface{}) (string, error) {
	switch v := args["children_age"].(type) {
	case nil:
		return "", nil
	case string:
		return parseAges(strings.Split(v, ","))
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, age := range v {
			switch a := age.(type) {
			case float64:
				parts = append(parts, strconv.FormatFloat(a, 'f', -1, 64))
			case string:
				parts = append(parts, a)
			default:
				return "", fmt.Errorf("children_age must contain numbers")
			}
		}
		return parseAges(parts)
	default:
		return "", fmt.Errorf("children_age must be an array or a comma separated string")
	}
}

func parseAges(parts []string) (string, error) {
	ages := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		age, err := strconv.Atoi(part)
		if err != nil || age < 0 || age > 17 {
			return "", fmt.Errorf("invalid child age %q", part)
		}
		ages = append(ages, strconv.Itoa(age))
	}
	return strings.Join(ages, ","), nil
}

// hotelSearchParamsFromArgs builds search parameters from tool arguments.
// Optional parameters left unset take their defaults in the booking client.
func hotelSearchParamsFromArgs(args map[string]interface{}) (booking.HotelSearchParams, error) {
	params := booking.HotelSearchParams{
		DestID:          stringArg(args, "dest_id"),
		SearchType:      stringArg(args, "search_type"),
		ArrivalDate:     stringArg(args, "arrival_date"),
		DepartureDate:   stringArg(args, "departure_date"),
		CurrencyCode:    strings.ToUpper(stringArg(args, "currency_code")),
		Location:        stringArg(args, "location"),
		LanguageCode:    stringArg(args, "languagecode"),
		TemperatureUnit: stringArg(args, "temperature_unit"),
		Units:           stringArg(args, "units"),
	}

	for _, key := range []string{"dest_id", "search_type", "arrival_date", "departure_date"} {
		if stringArg(args, key) == "" {
			return params, fmt.Errorf("%s is required", key)
		}
	}
	for _, key := range []string{"arrival_date", "departure_date"} {
		if !isISODate(stringArg(args, key)) {
			return params, fmt.Errorf("%s must be a date in YYYY-MM-DD format", key)
		}
	}
	if params.DepartureDate <= params.ArrivalDate {
		return params, fmt.Errorf("departure_date must be after arrival_date")
	}

	var err error
	if params.Adults, err = intArg(args, "adults"); err != nil {
		return params, err
	}
	if params.RoomQty, err = intArg(args, "room_qty"); err != nil {
		return params, err
	}
	if params.PageNumber, err = intArg(args, "page_number"); err != nil {
		return params, err
	}
	if params.ChildrenAge, err = childrenAgeArg(args); err != nil {
		return params, err
	}
	if params.Adults < 0 || params.RoomQty < 0 || params.PageNumber < 0 {
		return params, fmt.Errorf("numeric parameters must not be negative")
	}
	return params, nil
}

// isISODate reports whether s is a calendar date in YYYY-MM-DD form
func isISODate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}
