package core

import (
	"math"

	"github.com/santiagomed/conjure/schema"
)

// MergeAnalytics folds one exchange into the running session totals.
// The ceiling always comes from the incoming exchange since the model can change mid-session.
func MergeAnalytics(prev *schema.CumulativeTokenAnalytics, in schema.TokenAnalytics) schema.CumulativeTokenAnalytics {
	out := schema.CumulativeTokenAnalytics{TokenAnalytics: in}
	if prev == nil {
		out.CumulativePromptTokens = in.PromptTokens
		out.CumulativeResponseTokens = in.ResponseTokens
		out.CumulativeTotalTokens = in.TotalTokens
		out.UtilizationPercentage = Utilization(in.TotalTokens, in.MaxTokens)
		return out
	}

	out.CumulativePromptTokens = prev.CumulativePromptTokens + in.PromptTokens
	out.CumulativeResponseTokens = prev.CumulativeResponseTokens + in.ResponseTokens
	out.CumulativeTotalTokens = out.CumulativePromptTokens + out.CumulativeResponseTokens
	out.UtilizationPercentage = Utilization(out.CumulativeTotalTokens, in.MaxTokens)
	return out
}

// Utilization is total/max as a percentage rounded to two decimals. A zero ceiling yields 0.
func Utilization(total, max int) float64 {
	if max <= 0 {
		return 0
	}
	return math.Round(float64(total)/float64(max)*100*100) / 100
}
