package core

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"
)

const contentTypeXML = "application/xml"

type twimlResponse struct {
	XMLName  xml.Name       `xml:"Response"`
	Messages []twimlMessage `xml:"Message"`
}

type twimlMessage struct {
	Body  string `xml:"Body,omitempty"`
	Media string `xml:"Media,omitempty"`
}

// postSms answers a Twilio messaging webhook. Twilio only reads the TwiML body, so every outcome
// including a failed analysis is a 200 with a text reply.
func (sc *ServiceContext) postSms(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		writeTwiml(w, twimlText(fmt.Sprintf("Could not read message: %s", err)))
		return
	}

	reply := sc.handleTextCommand(req.Context(), req.PostForm.Get("Body"))
	writeTwiml(w, reply)
}

// handleTextCommand parses a text message, runs the analysis it names and builds the reply: the beta
// summary followed by one media message per uploaded chart
func (sc *ServiceContext) handleTextCommand(ctx context.Context, body string) twimlResponse {
	ar, err := ParseCommand(body, sc.SMSTrigger)
	if errors.Is(err, ErrUnrecognizedCommand) {
		return twimlText(UsageHint(sc.SMSTrigger))
	}
	if err != nil {
		return twimlText(err.Error())
	}

	res, err := sc.RunAnalysis(ctx, ar)
	if err != nil {
		return twimlText(fmt.Sprintf("Analysis of %s failed: %s", ar.Ticker, err))
	}

	reply := twimlText(sc.Reporter.Summary(res))
	for _, url := range sc.uploadCharts(ctx, res) {
		reply.Messages = append(reply.Messages, twimlMessage{Media: url})
	}

	return reply
}

// uploadCharts renders and uploads both charts concurrently, a chart that fails is left out of the
// reply rather than failing it
func (sc *ServiceContext) uploadCharts(ctx context.Context, res *AnalysisResult) []string {
	if sc.Uploader == nil {
		return nil
	}

	charts := []struct {
		name   string
		render func(*AnalysisResult) ([]byte, error)
	}{
		{"regression_plot.png", sc.Reporter.RegressionChart},
		{"rolling_beta_plot.png", sc.Reporter.RollingBetaChart},
	}

	urls := make([]string, len(charts))
	var g errgroup.Group
	for i, c := range charts {
		g.Go(func() error {
			body, err := c.render(res)
			if err != nil {
				sc.Log.Error().Err(err).Str("chart", c.name).Msg("error rendering chart")
				return nil
			}

			url, err := sc.Uploader.Upload(ctx, res.Request.Ticker+"_"+c.name, contentTypePNG, body)
			if err != nil {
				sc.Log.Error().Err(err).Str("chart", c.name).Msg("error uploading chart")
				return nil
			}

			urls[i] = url
			return nil
		})
	}
	g.Wait()

	uploaded := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			uploaded = append(uploaded, u)
		}
	}
	return uploaded
}

func twimlText(text string) twimlResponse {
	return twimlResponse{Messages: []twimlMessage{{Body: text}}}
}

func writeTwiml(w http.ResponseWriter, reply twimlResponse) {
	body, err := xml.Marshal(reply)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeXML)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	w.Write(body)
}
