package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahoo_ImplementsProvider(t *testing.T) {
	var _ marketdata.Provider = (*Yahoo)(nil)
}

const chartBody = `{"chart":{"result":[{"timestamp":[1704153600,1704240000,1704326400],
"indicators":{"quote":[{"open":[100,101,null],"high":[102,103,null],"low":[99,100,null],
"close":[101,102,null],"volume":[1000,2000,null]}]}}],"error":null}}`

func TestYahoo_GetHistoricalData(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	y := New(WithBaseURL(srv.URL))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	data, err := y.GetHistoricalData(context.Background(), marketdata.Request{
		Symbol: "600519.SH", Timeframe: core.TimeframeWeek, Start: start, End: start.AddDate(0, 0, 5),
	})
	require.NoError(t, err)

	assert.Equal(t, "/600519.SS", gotPath)
	assert.True(t, strings.Contains(gotQuery, "interval=1wk"), gotQuery)
	assert.Equal(t, "yahoo", data.DataSource)
	require.Len(t, data.Bars, 2, "null close is skipped")
	assert.Equal(t, 101.0, data.Bars[0].Close)
	assert.Equal(t, 2000.0, data.Bars[1].Volume)
	assert.Equal(t, int64(1704153600), data.Bars[0].Timestamp.Unix())
}

func TestYahoo_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *core.Error
	}{
		{"not found", http.StatusNotFound, ``, core.ErrDataUnavailable},
		{"server error", http.StatusInternalServerError, ``, core.ErrProviderFailed},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"x","description":"bad"}}}`, core.ErrProviderFailed},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, core.ErrDataUnavailable},
		{"no timestamps", http.StatusOK, `{"chart":{"result":[{"indicators":{"quote":[{}]}}],"error":null}}`, core.ErrDataUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(WithBaseURL(srv.URL)).GetHistoricalData(context.Background(), marketdata.Request{Symbol: "AAPL"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateSymbol(t *testing.T) {
	tests := []struct {
		symbol  string
		wantErr bool
	}{
		{"AAPL", false},
		{"BRK-B", false},
		{"0700.HK", false},
		{"^GSPC", false},
		{"", true},
		{"AAPL; DROP", true},
		{strings.Repeat("A", 21), true},
	}
	for _, tt := range tests {
		err := validateSymbol(tt.symbol)
		if tt.wantErr {
			assert.Error(t, err, tt.symbol)
		} else {
			assert.NoError(t, err, tt.symbol)
		}
	}
}
