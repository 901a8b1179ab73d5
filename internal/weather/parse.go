package weather

import (
	"time"

	"github.com/tidwall/gjson"
)

const hourLayout = "2006-01-02 15:04"

// Hour is one hourly forecast entry.
type Hour struct {
	Time      string  `json:"time"`
	TempC     float64 `json:"temp_c"`
	Condition string  `json:"condition"`
}

// Day is the forecast for a single calendar day.
type Day struct {
	Date      string  `json:"date"`
	MaxTempC  float64 `json:"max_temp_c"`
	MinTempC  float64 `json:"min_temp_c"`
	Condition string  `json:"condition"`
	Hours     []Hour  `json:"hours,omitempty"`
}

// Report is the forecast handed to the answer stage.
type Report struct {
	City        string `json:"city"`
	Location    string `json:"location,omitempty"`
	ForecastDay Day    `json:"forecast_day"`
}

// findDay returns the forecast day matching date with its raw hourly entries.
func findDay(body []byte, date string) (Day, []gjson.Result, bool) {
	days := gjson.GetBytes(body, "forecast.forecastday").Array()
	for _, d := range days {
		if d.Get("date").String() != date {
			continue
		}
		day := Day{
			Date:      d.Get("date").String(),
			MaxTempC:  d.Get("day.maxtemp_c").Float(),
			MinTempC:  d.Get("day.mintemp_c").Float(),
			Condition: d.Get("day.condition.text").String(),
		}
		return day, d.Get("hour").Array(), true
	}
	return Day{}, nil, false
}

// hoursInWindow keeps entries whose hour lies in [start, end].
func hoursInWindow(entries []gjson.Result, start, end int) []Hour {
	hours := make([]Hour, 0, end-start+1)
	for _, h := range entries {
		ts := h.Get("time").String()
		t, err := time.Parse(hourLayout, ts)
		if err != nil {
			continue
		}
		if t.Hour() < start || t.Hour() > end {
			continue
		}
		hours = append(hours, Hour{
			Time:      ts,
			TempC:     h.Get("temp_c").Float(),
			Condition: h.Get("condition.text").String(),
		})
	}
	return hours
}

// locationName formats location.name, region and country.
func locationName(body []byte) string {
	loc := gjson.GetBytes(body, "location")
	if !loc.Exists() {
		return ""
	}
	name := loc.Get("name").String()
	for _, part := range []string{loc.Get("region").String(), loc.Get("country").String()} {
		if part != "" && part != name {
			name += ", " + part
		}
	}
	return name
}
