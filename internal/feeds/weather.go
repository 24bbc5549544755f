package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/feedcached/feedcached/internal/store"
)

// weatherCodes maps significant-weather codes from the point forecast API to
// a short label and a description.
var weatherCodes = map[int][2]string{
	0:  {"Clear", "Clear night"},
	1:  {"Sunny", "Sunny day"},
	2:  {"Cloudy", "Partly cloudy"},
	3:  {"Cloudy", "Partly cloudy"},
	5:  {"Mist", "Mist"},
	6:  {"Fog", "Fog"},
	7:  {"Cloudy", "Cloudy"},
	8:  {"Overcast", "Overcast"},
	9:  {"Rain", "Light rain shower"},
	10: {"Rain", "Light rain shower"},
	11: {"Drizzle", "Drizzle"},
	12: {"Rain", "Light rain"},
	13: {"Rain", "Heavy rain shower"},
	14: {"Rain", "Heavy rain shower"},
	15: {"Rain", "Heavy rain"},
	16: {"Sleet", "Sleet shower"},
	17: {"Sleet", "Sleet shower"},
	18: {"Sleet", "Sleet"},
	19: {"Hail", "Hail shower"},
	20: {"Hail", "Hail shower"},
	21: {"Hail", "Hail"},
	22: {"Snow", "Light snow shower"},
	23: {"Snow", "Light snow shower"},
	24: {"Snow", "Light snow"},
	25: {"Snow", "Heavy snow shower"},
	26: {"Snow", "Heavy snow shower"},
	27: {"Snow", "Heavy snow"},
	28: {"Thunder", "Thunder shower"},
	29: {"Thunder", "Thunder shower"},
	30: {"Thunder", "Thunder"},
}

// WeatherConfig holds the point forecast API settings.
type WeatherConfig struct {
	URL          string
	Latitude     string
	Longitude    string
	ClientID     string
	ClientSecret string
}

// pointForecast mirrors the slice of the API response the collector reads.
type pointForecast struct {
	Features []struct {
		Properties struct {
			Location struct {
				Name string `json:"name"`
			} `json:"location"`
			TimeSeries []struct {
				Time                      string  `json:"time"`
				DayMaxScreenTemperature   float64 `json:"dayMaxScreenTemperature"`
				NightMinScreenTemperature float64 `json:"nightMinScreenTemperature"`
				DayMaxFeelsLikeTemp       float64 `json:"dayMaxFeelsLikeTemp"`
				Midnight10MWindGust       float64 `json:"midnight10MWindGust"`
				DaySignificantWeatherCode int     `json:"daySignificantWeatherCode"`
			} `json:"timeSeries"`
		} `json:"properties"`
	} `json:"features"`
}

// WeatherCollector collects daily point forecasts.
type WeatherCollector struct {
	cfg      WeatherConfig
	client   *http.Client
	location string // last seen location name, used as the description
}

// NewWeatherCollector creates a collector for the configured point.
func NewWeatherCollector(cfg WeatherConfig, client *http.Client) *WeatherCollector {
	if client == nil {
		client = http.DefaultClient
	}
	return &WeatherCollector{cfg: cfg, client: client}
}

func (c *WeatherCollector) Namespace() string  { return NamespaceWeather }
func (c *WeatherCollector) Collection() string { return "FORECAST" }

func (c *WeatherCollector) Description() string {
	if c.location == "" {
		return "Daily weather forecast."
	}
	return fmt.Sprintf("Weather in %s", c.location)
}

func (c *WeatherCollector) Fetch(ctx context.Context) ([]store.Record, error) {
	query := url.Values{
		"includeLocationName": {"true"},
		"latitude":            {c.cfg.Latitude},
		"longitude":           {c.cfg.Longitude},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-ibm-client-id", c.cfg.ClientID)
	req.Header.Set("x-ibm-client-secret", c.cfg.ClientSecret)
	req.Header.Set("accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from forecast API", resp.StatusCode)
	}

	var forecast pointForecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("failed to decode forecast: %w", err)
	}
	if len(forecast.Features) == 0 {
		return nil, fmt.Errorf("forecast response carries no features")
	}

	properties := forecast.Features[0].Properties
	c.location = properties.Location.Name
	if c.location == "" {
		c.location = NotFound
	}

	records := make([]store.Record, 0, len(properties.TimeSeries))
	for _, day := range properties.TimeSeries {
		code := day.DaySignificantWeatherCode
		labels, ok := weatherCodes[code]
		if !ok {
			labels = weatherCodes[1]
		}

		var date time.Time
		if parsed, err := time.Parse(time.RFC3339, day.Time); err == nil {
			date = parsed
		}

		records = append(records, WeatherRecord{
			Location:    c.location,
			Date:        date,
			MaxTemp:     fmt.Sprintf("%dº", int(math.Round(day.DayMaxScreenTemperature))),
			LowTemp:     fmt.Sprintf("%dº", int(math.Round(day.NightMinScreenTemperature))),
			MaxFeels:    fmt.Sprintf("%dº", int(math.Round(day.DayMaxFeelsLikeTemp))),
			WindGust:    int(math.Round(day.Midnight10MWindGust)),
			Weather:     labels[0],
			Description: labels[1],
		})
	}

	return records, nil
}
