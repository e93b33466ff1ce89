// Package share builds the result text and hands it to whichever share
// target is available.
package share

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/whyrusleeping/skeeter/tally"
)

const (
	Title  = "Mosquito Repellent Test"
	Tag    = "#MosquitoTest2025"
	Intent = "https://twitter.com/intent/tweet"
)

var tweetTags = []string{"#KGNINJA", "#FMMoskyt"}

func label(last *tally.Outcome) string {
	if last == nil {
		return "Testing"
	}
	return last.String()
}

func hz(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Text is the long form result used for native share and the clipboard.
func Text(last *tally.Outcome, mode string, freqHz float64) string {
	return fmt.Sprintf("%s: %s\nMode: %s  Frequency: %s Hz\n%s", Title, label(last), mode, hz(freqHz), Tag)
}

// TweetText is the short form. Only a positive vote is reported as such.
func TweetText(last *tally.Outcome, freqHz float64) string {
	base := "Testing " + hz(freqHz) + " Hz"
	if last != nil && *last == tally.Worked {
		base = "Worked at " + hz(freqHz) + " Hz"
	}
	for _, t := range tweetTags {
		base += " " + t
	}
	return base
}

func IntentURL(text string) string {
	return Intent + "?" + url.Values{"text": {text}}.Encode()
}
