package core

import (
	"fmt"
	"strings"

	ex "github.com/graygillman/CapmAnalysis/data/extensions"
)

const DefaultTrigger = "run my code"

// UsageHint is the reply to a text that does not start with the trigger phrase
func UsageHint(trigger string) string {
	return fmt.Sprintf("Send '%s' to execute your script.", trigger)
}

// ParseCommand reads "<trigger> <ticker> <benchmark> <risk free> <D|M>" out of a text message.
// The trigger is compared case insensitively word by word.
func ParseCommand(body, trigger string) (AnalysisRequest, error) {
	words := strings.Fields(body)
	triggerWords := strings.Fields(trigger)

	if len(triggerWords) == 0 || len(words) < len(triggerWords) {
		return AnalysisRequest{}, ErrUnrecognizedCommand
	}
	for i, w := range triggerWords {
		if !ex.AreEqual(words[i], w) {
			return AnalysisRequest{}, ErrUnrecognizedCommand
		}
	}

	args := words[len(triggerWords):]
	if len(args) != 4 {
		return AnalysisRequest{}, fmt.Errorf("%w: expected '%s <ticker> <benchmark> <risk free> <D|M>', got %d arguments", ErrMalformedCommand, trigger, len(args))
	}

	req, err := NewAnalysisRequest(args[0], args[1], args[2], args[3], SourceSMS)
	if err != nil {
		return AnalysisRequest{}, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}

	return req, nil
}
