package alpaca

import (
	"context"
	"errors"
	"testing"
	"time"

	alpacamd "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/tradesim/internal/core"
	"github.com/newthinker/tradesim/internal/marketdata"
)

type fakeClient struct {
	bars    []alpacamd.Bar
	err     error
	gotSym  string
	gotReq  alpacamd.GetBarsRequest
	invoked bool
}

func (f *fakeClient) GetBars(symbol string, req alpacamd.GetBarsRequest) ([]alpacamd.Bar, error) {
	f.invoked = true
	f.gotSym = symbol
	f.gotReq = req
	return f.bars, f.err
}

func TestAlpaca_GetHistoricalData(t *testing.T) {
	ts := time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC)
	fc := &fakeClient{bars: []alpacamd.Bar{
		{Timestamp: ts, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1200},
		{Timestamp: ts.AddDate(0, 0, 1), Open: 10.5, High: 12, Low: 10, Close: 11.5, Volume: 800},
	}}
	a := &Alpaca{client: fc, feed: "iex"}

	data, err := a.GetHistoricalData(context.Background(), marketdata.Request{
		Symbol: "spy", Timeframe: core.TimeframeDay, Start: ts, End: ts.AddDate(0, 0, 2), Limit: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, "SPY", fc.gotSym)
	assert.Equal(t, 50, fc.gotReq.TotalLimit)
	assert.Equal(t, alpacamd.NewTimeFrame(1, alpacamd.Day), fc.gotReq.TimeFrame)
	assert.Equal(t, "alpaca", data.DataSource)
	require.Len(t, data.Bars, 2)
	assert.Equal(t, 11.5, data.Bars[1].Close)
	assert.Equal(t, 800.0, data.Bars[1].Volume)
}

func TestAlpaca_Errors(t *testing.T) {
	a := &Alpaca{client: &fakeClient{err: errors.New("403 forbidden")}}
	_, err := a.GetHistoricalData(context.Background(), marketdata.Request{Symbol: "SPY"})
	assert.ErrorIs(t, err, core.ErrProviderFailed)

	a = &Alpaca{client: &fakeClient{}}
	_, err = a.GetHistoricalData(context.Background(), marketdata.Request{Symbol: "SPY"})
	assert.ErrorIs(t, err, core.ErrDataUnavailable)
}

func TestAlpaca_CancelledContext(t *testing.T) {
	fc := &fakeClient{}
	a := &Alpaca{client: fc}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.GetHistoricalData(ctx, marketdata.Request{Symbol: "SPY"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, fc.invoked)
}

func TestToTimeFrame(t *testing.T) {
	assert.Equal(t, alpacamd.NewTimeFrame(1, alpacamd.Hour), toTimeFrame(core.TimeframeHour))
	assert.Equal(t, alpacamd.NewTimeFrame(1, alpacamd.Min), toTimeFrame(core.TimeframeMinute))
	assert.Equal(t, alpacamd.NewTimeFrame(1, alpacamd.Day), toTimeFrame(""))
}
