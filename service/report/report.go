package report

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/plot/vg"

	ex "github.com/graygillman/CapmAnalysis/data/extensions"
	"github.com/graygillman/CapmAnalysis/service/core"
)

const (
	defaultWidth  = 8 * vg.Inch
	defaultHeight = 5 * vg.Inch
)

// Reporter turns an analysis result into charts, a workbook and the text message summary
type Reporter struct {
	log    zerolog.Logger
	width  vg.Length
	height vg.Length
}

func New(log zerolog.Logger) *Reporter {
	return &Reporter{
		log:    log.With().Str("component", "report").Logger(),
		width:  defaultWidth,
		height: defaultHeight,
	}
}

// Summary is the beta listing sent back by text message
//
//	-------- AAPL Betas --------
//	1 Year Beta: 1.21
//	5 Year Beta: 1.30
//
//	Data Range: 2004-09-01 to 2024-08-01
func (rp *Reporter) Summary(res *core.AnalysisResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "-------- %s Betas --------\n", res.Request.Ticker)
	for _, b := range res.Betas {
		fmt.Fprintf(&sb, "%d Year Beta: %.2f\n", b.Years, b.Beta)
	}
	fmt.Fprintf(&sb, "\nData Range: %s to %s", ex.FmtShort(res.Frame.FirstDate), ex.FmtShort(res.Frame.LastDate))
	return sb.String()
}

// WorkbookName is {ticker}_{Daily|Monthly}_Data_CAPM_Analysis_{YYYY-MM-DD}.xlsx, dated the day the run completed
func (rp *Reporter) WorkbookName(res *core.AnalysisResult) string {
	return fmt.Sprintf("%s_%s_Data_CAPM_Analysis_%s.xlsx",
		res.Request.Ticker, res.Request.Frequency.Word(), ex.FmtShort(res.CompletedAt))
}

var _ core.Reporter = (*Reporter)(nil)
