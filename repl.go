package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/c-bata/go-prompt"

	"github.com/whyrusleeping/skeeter/session"
)

func commandSuggestions() []prompt.Suggest {
	var out []prompt.Suggest
	for _, c := range session.Commands() {
		out = append(out, prompt.Suggest{Text: c.Name, Description: c.Help + "  (" + c.Usage + ")"})
	}
	out = append(out, prompt.Suggest{Text: "exit", Description: "quit"})
	return out
}

// argSuggestions completes the fixed choices some commands take.
var argSuggestions = map[string][]prompt.Suggest{
	"mode":    {{Text: "tone"}, {Text: "fm"}},
	"wave":    waveSuggestions,
	"modwave": waveSuggestions,
	"debug":   {{Text: "on"}, {Text: "off"}},
	"dist":    {{Text: "on"}, {Text: "off"}},
	"vote":    {{Text: "worked"}, {Text: "noeffect"}, {Text: "unknown"}},
}

var waveSuggestions = []prompt.Suggest{{Text: "sine"}, {Text: "square"}, {Text: "sawtooth"}, {Text: "triangle"}}

func completer(d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	word := d.GetWordBeforeCursor()
	fields := strings.Fields(before)
	if len(fields) == 0 || (len(fields) == 1 && !strings.HasSuffix(before, " ")) {
		return prompt.FilterHasPrefix(commandSuggestions(), word, true)
	}
	return prompt.FilterHasPrefix(argSuggestions[fields[0]], word, true)
}

func replExecutor(sess *session.Session) func(string) {
	return func(line string) {
		line = strings.TrimSpace(line)
		if line == "" || line == "exit" {
			return
		}
		out, err := session.Dispatch(context.Background(), sess, line)
		if err != nil {
			fmt.Println("ERROR: ", err)
			return
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}

func runREPL(sess *session.Session) {
	p := prompt.New(
		replExecutor(sess),
		completer,
		prompt.OptionPrefix("skeeter> "),
		prompt.OptionTitle("skeeter"),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && strings.TrimSpace(in) == "exit"
		}),
	)
	p.Run()
}
