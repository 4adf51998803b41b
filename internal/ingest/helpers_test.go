package ingest

import (
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

const testEndpoint = "https://forecast.test/api/forecast/city/130010"

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func registerForecastResponder(t *testing.T, statusCode int, body string) {
	t.Helper()
	httpmock.RegisterResponder("GET", testEndpoint, httpmock.NewStringResponder(statusCode, body))
}

func newTestClient() *Client {
	c := NewClient("https://forecast.test/api/forecast/city", "130010", time.Second)
	c.SetRetry(2, time.Millisecond)
	return c
}

// forecastResponse is a trimmed three-day document in the provider's shape.
func forecastResponse() string {
	return `{
  "publicTime": "2024-08-01T05:00:00+09:00",
  "title": "東京都 東京 の天気",
  "forecasts": [
    {
      "date": "2024-08-01",
      "dateLabel": "今日",
      "telop": "晴れ",
      "detail": {"weather": "晴れ", "wind": "南の風", "wave": "0.5メートル"},
      "temperature": {"min": {"celsius": null, "fahrenheit": null}, "max": {"celsius": "35", "fahrenheit": "95"}},
      "chanceOfRain": {"T00_06": "--%", "T06_12": "0%", "T12_18": "10%", "T18_24": "10%"},
      "image": {"title": "晴れ", "url": "https://www.jma.go.jp/bosai/forecast/img/100.svg", "width": 80, "height": 60}
    },
    {
      "date": "2024-08-02",
      "dateLabel": "明日",
      "telop": "晴時々曇",
      "detail": {"weather": "晴れ 時々 くもり", "wind": "南の風", "wave": "0.5メートル"},
      "temperature": {"min": {"celsius": "26", "fahrenheit": "78.8"}, "max": {"celsius": "34", "fahrenheit": "93.2"}},
      "chanceOfRain": {"T00_06": "10%", "T06_12": "10%", "T12_18": "20%", "T18_24": "20%"},
      "image": {"title": "晴時々曇", "url": "https://www.jma.go.jp/bosai/forecast/img/101.svg", "width": 80, "height": 60}
    },
    {
      "date": "2024-08-03",
      "dateLabel": "明後日",
      "telop": "曇時々晴",
      "detail": {"weather": null, "wind": null, "wave": null},
      "temperature": {"min": {"celsius": "24", "fahrenheit": "75.2"}, "max": {"celsius": "32", "fahrenheit": "89.6"}},
      "chanceOfRain": {"T00_06": "20%", "T06_12": "30%", "T12_18": "30%", "T18_24": "20%"},
      "image": {"title": "曇時々晴", "url": "https://www.jma.go.jp/bosai/forecast/img/201.svg", "width": 80, "height": 60}
    }
  ]
}`
}

func twoDayResponse() string {
	return `{
  "forecasts": [
    {"date": "2024-08-01", "dateLabel": "今日", "telop": "雨",
     "temperature": {"min": {"celsius": "23"}, "max": {"celsius": "28"}}},
    {"date": "2024-08-02", "dateLabel": "明日", "telop": "曇",
     "temperature": {"min": {"celsius": "24"}, "max": {"celsius": "30"}}}
  ]
}`
}
