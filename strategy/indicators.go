package strategy

import (
	"fmt"
	"math"

	"github.com/Quaser41/Autonomous-Trader/utilities"
)

// CalculateATR calculates the Average True Range (ATR) over the last 'period' bars.
func CalculateATR(bars []utilities.OHLCVBar, period int) (float64, error) {
	n := len(bars)
	if period <= 0 || n < period+1 {
		return 0.0, fmt.Errorf("not enough bars (%d) for ATR calculation of period %d", n, period)
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		curr := bars[n-i]
		prev := bars[n-i-1]

		highLow := curr.High - curr.Low
		highClose := math.Abs(curr.High - prev.Close)
		lowClose := math.Abs(curr.Low - prev.Close)

		trueRange := math.Max(highLow, math.Max(highClose, lowClose))
		sum += trueRange
	}
	return sum / float64(period), nil
}

// CalculateATRPercent expresses the ATR as a fraction of the latest close, the
// form consumed by the trailing-stop distance calculation. Returns 0 when there
// is not enough history, which callers treat as "no ATR available".
func CalculateATRPercent(bars []utilities.OHLCVBar, period int) float64 {
	atr, err := CalculateATR(bars, period)
	if err != nil {
		return 0.0
	}
	lastClose := bars[len(bars)-1].Close
	if lastClose <= 0 {
		return 0.0
	}
	return atr / lastClose
}

// CalculateSMA computes the simple moving average over the last 'period' values.
func CalculateSMA(data []float64, period int) float64 {
	if period <= 0 || len(data) < period {
		return 0.0
	}

	segment := data[len(data)-period:]
	sum := 0.0
	for _, v := range segment {
		sum += v
	}
	return sum / float64(period)
}
