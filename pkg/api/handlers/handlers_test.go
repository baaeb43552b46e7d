package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/caravan-insights/priceanalyzer/internal/testutil"
	"github.com/caravan-insights/priceanalyzer/pkg/chart"
	"github.com/caravan-insights/priceanalyzer/pkg/dataset"
	"github.com/caravan-insights/priceanalyzer/pkg/format"
	"github.com/caravan-insights/priceanalyzer/pkg/pipeline"
	"github.com/creasty/defaults"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	pcfg := &pipeline.Config{}
	require.NoError(t, defaults.Set(pcfg))
	ds := dataset.NewDataset(testutil.ScenarioTable(t), []string{"Bis 2 Jahre", "2 - 4 Jahre"}, nil)
	p, err := pipeline.New(ds, pcfg)
	require.NoError(t, err)

	fcfg := &format.Config{}
	require.NoError(t, defaults.Set(fcfg))
	f, err := format.New(fcfg)
	require.NoError(t, err)

	ccfg := &chart.Config{}
	require.NoError(t, defaults.Set(ccfg))
	r, err := chart.NewRenderer(ccfg, f)
	require.NoError(t, err)

	app := fiber.New()
	NewServer(p, f, r, log).RegisterRoutes(app)

	return app
}

func get(t *testing.T, app *fiber.App, path string, query url.Values) *http.Response {
	t.Helper()

	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, http.NoBody))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func TestGetFacets(t *testing.T) {
	app := newTestApp(t)

	resp := get(t, app, "/facets", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Facets  map[string][]string `json:"facets"`
		Periods []string            `json:"periods"`
		Rows    int                 `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, []string{"A", "B"}, body.Facets["category"])
	assert.Equal(t, []string{"Bis 2 Jahre", "2 - 4 Jahre", "6 Jahre und älter"}, body.Facets["age_bucket"])
	assert.Equal(t, []string{"2022Q4", "2023Q1", "2023Q2", "2023Q3", "2023Q4"}, body.Periods)
	assert.Equal(t, 20, body.Rows)
}

func TestGetDashboard(t *testing.T) {
	app := newTestApp(t)

	resp := get(t, app, "/dashboard", url.Values{"category": {"A"}, "age_bucket": {"Total"}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		CurrentPeriod string `json:"current_period"`
		Rows          int    `json:"rows"`
		LowSample     bool   `json:"low_sample"`
		KPIs          struct {
			CurrentMedian struct {
				Value *float64 `json:"value"`
			} `json:"current_median"`
			YoYDeltaPct struct {
				Value   *float64 `json:"value"`
				Class   string   `json:"class"`
				Against string   `json:"against"`
			} `json:"yoy_delta_pct"`
		} `json:"kpis"`
		Tiles []struct {
			Title string `json:"title"`
			Text  string `json:"text"`
			Color string `json:"color"`
		} `json:"tiles"`
		Notice     string `json:"notice"`
		CountLabel string `json:"count_label"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, "2023Q4", body.CurrentPeriod)
	assert.Equal(t, 15, body.Rows)
	assert.True(t, body.LowSample)
	require.NotNil(t, body.KPIs.CurrentMedian.Value)
	assert.InDelta(t, 43000, *body.KPIs.CurrentMedian.Value, 1e-9)
	require.NotNil(t, body.KPIs.YoYDeltaPct.Value)
	assert.InDelta(t, -14, *body.KPIs.YoYDeltaPct.Value, 1e-9)
	assert.Equal(t, "negative", body.KPIs.YoYDeltaPct.Class)
	assert.Equal(t, "2022Q4", body.KPIs.YoYDeltaPct.Against)

	require.Len(t, body.Tiles, 4)
	assert.Equal(t, "43.000 €", body.Tiles[0].Text)
	assert.Equal(t, "-14,00%", body.Tiles[1].Text)
	assert.Equal(t, "#ff0000", body.Tiles[1].Color)
	assert.NotEmpty(t, body.Notice)
	assert.Equal(t, "n = 15", body.CountLabel)
}

func TestGetDashboard_UnknownValue(t *testing.T) {
	app := newTestApp(t)

	resp := get(t, app, "/dashboard", url.Values{"category": {"Alkoven"}})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Alkoven")
}

func TestCharts(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name       string
		path       string
		query      url.Values
		wantStatus int
	}{
		{name: "price", path: "/charts/price.png", query: url.Values{"category": {"A"}}, wantStatus: fiber.StatusOK},
		{name: "category shares", path: "/charts/shares/category.png", wantStatus: fiber.StatusOK},
		{name: "age shares", path: "/charts/shares/age_bucket.png", query: url.Values{"region": {"Nord"}}, wantStatus: fiber.StatusOK},
		{name: "category medians", path: "/charts/medians/category.png", wantStatus: fiber.StatusOK},
		{name: "unknown facet", path: "/charts/shares/colour.png", wantStatus: fiber.StatusNotFound},
		{name: "facet without chart", path: "/charts/shares/region.png", wantStatus: fiber.StatusNotFound},
		{
			name:       "empty combination",
			path:       "/charts/price.png",
			query:      url.Values{"category": {"B"}, "age_bucket": {"Bis 2 Jahre"}},
			wantStatus: fiber.StatusNotFound,
		},
		{name: "unknown value", path: "/charts/price.png", query: url.Values{"region": {"West"}}, wantStatus: fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, app, tt.path, tt.query)
			require.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == fiber.StatusOK {
				assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Greater(t, len(body), 8)
			}
		})
	}
}
