package eastmoney

import (
	"strconv"
	"strings"
	"time"

	"signalcore/internal/model"
)

const (
	dayLayout   = "2006-01-02"
	min30Layout = "2006-01-02 15:04"
)

// parseKlineRow converts one vendor kline string into a Bar. Rows are
// comma-joined: date,open,close,high,low,volume,turnover. Malformed rows are
// skipped rather than failing the whole response.
func parseKlineRow(symbol string, tf model.Timeframe, row string) (model.Bar, bool) {
	parts := strings.Split(row, ",")
	if len(parts) < 7 {
		return model.Bar{}, false
	}

	layout := dayLayout
	if tf == model.TimeframeMin30 {
		layout = min30Layout
	}
	ts, err := time.ParseInLocation(layout, parts[0], cst)
	if err != nil {
		return model.Bar{}, false
	}

	vals := make([]float64, 6)
	for i := 1; i <= 6; i++ {
		v, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return model.Bar{}, false
		}
		vals[i-1] = v
	}

	return model.Bar{
		Symbol:    symbol,
		Timeframe: tf,
		Timestamp: ts,
		Open:      vals[0],
		Close:     vals[1],
		High:      vals[2],
		Low:       vals[3],
		Volume:    vals[4],
		Turnover:  vals[5],
	}, true
}

// cst is the exchange timezone; bar timestamps from the vendor carry no
// offset of their own.
var cst = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}()
