package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hokutoh/formloop/internal/config"
	"github.com/hokutoh/formloop/internal/observability"
	"github.com/hokutoh/formloop/pkg/action"
	"github.com/hokutoh/formloop/pkg/recorder"
	"github.com/hokutoh/formloop/pkg/site"
)

const recordHelp = `Commands (one per line):
  click <locator>              click an element
  input <locator> <text>       type text into a field
  checkbox <locator>           click a checkbox unless already selected
  submit <locator>             submit a form via its submit control
  wait <locator>               wait for an element to appear
  waiturl <fragment>           wait until the URL contains the fragment
  alert [accept|dismiss]       wait for a JS dialog and handle it
  sleep <seconds>              pause for a fixed duration
  scroll <locator>             scroll an element into view
  shot <path>                  capture a screenshot
  desc <text>                  set the description for the next step
  optional <command...>        mark the step optional (skip on failure)
  done                         finish and save the sequence

Locators: css=<sel> | xpath=<expr> | name=<name> | id=<id>; bare values are CSS.`

// newRecordCmd creates the `record` command, an interactive builder for
// action sequences.
func newRecordCmd() *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record <name>",
		Short: "Records a named action sequence from interactive commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			store, err := action.NewStore(cfg.Run().ActionsDir, logger)
			if err != nil {
				return err
			}

			name := args[0]
			description, _ := cmd.Flags().GetString("description")
			sourceURL, _ := cmd.Flags().GetString("source-url")
			session := recorder.NewSession(
				action.Metadata{
					Name:        name,
					Description: description,
					SourceURL:   sourceURL,
				},
				recorder.Defaults{
					WaitAfter: cfg.Recorder().WaitAfter,
					Timeout:   cfg.Recorder().Timeout,
					Retries:   cfg.Recorder().Retries,
				},
				store,
				logger,
			)

			fmt.Printf("Recording %q. Type 'help' for commands, 'done' to finish.\n", name)
			if err := recordLoop(cmd.InOrStdin(), session); err != nil {
				return err
			}

			seq, err := session.Stop()
			if err != nil {
				return err
			}
			if len(seq.Steps) == 0 {
				fmt.Println("Nothing recorded; no sequence saved.")
				return nil
			}

			logger.Info("Sequence recorded",
				zap.String("name", name),
				zap.Int("steps", len(seq.Steps)),
			)
			fmt.Printf("Saved %q with %d steps.\n", name, len(seq.Steps))
			return nil
		},
	}

	recordCmd.Flags().String("description", "", "Free-form description stored with the sequence.")
	recordCmd.Flags().String("source-url", "", "Page URL the sequence was recorded against.")

	return recordCmd
}

// recordLoop consumes commands until "done" or EOF.
func recordLoop(in io.Reader, session *recorder.Session) error {
	scanner := bufio.NewScanner(in)
	var pendingDesc string

	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "done", line == "stop":
			return nil
		case line == "help":
			fmt.Println(recordHelp)
			continue
		case strings.HasPrefix(line, "desc "):
			pendingDesc = strings.TrimSpace(strings.TrimPrefix(line, "desc "))
			continue
		}

		optional := false
		if rest, ok := strings.CutPrefix(line, "optional "); ok {
			optional = true
			line = strings.TrimSpace(rest)
		}

		step, err := parseStep(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		step.Optional = optional
		step.Description = pendingDesc
		pendingDesc = ""

		if err := session.Observe(step); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// parseStep turns one command line into an action step.
func parseStep(line string) (action.Step, error) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	needArg := func(what string) (string, error) {
		if len(args) == 0 {
			return "", fmt.Errorf("%s requires %s", cmd, what)
		}
		return args[0], nil
	}

	switch cmd {
	case "click", "checkbox", "submit", "wait", "scroll":
		raw, err := needArg("a locator")
		if err != nil {
			return action.Step{}, err
		}
		loc := parseLocator(raw)
		kinds := map[string]action.Kind{
			"click":    action.Click,
			"checkbox": action.ConfirmCheckbox,
			"submit":   action.SubmitForm,
			"wait":     action.WaitForElement,
			"scroll":   action.Scroll,
		}
		return action.Step{Kind: kinds[cmd], Locator: &loc}, nil

	case "input":
		if len(args) < 2 {
			return action.Step{}, fmt.Errorf("input requires a locator and text")
		}
		loc := parseLocator(args[0])
		return action.Step{
			Kind:    action.InputText,
			Locator: &loc,
			Value:   strings.Join(args[1:], " "),
		}, nil

	case "waiturl":
		frag, err := needArg("a URL fragment")
		if err != nil {
			return action.Step{}, err
		}
		return action.Step{Kind: action.WaitForURLChange, Value: frag}, nil

	case "alert":
		value := "accept"
		if len(args) > 0 {
			value = args[0]
		}
		if value != "accept" && value != "dismiss" {
			return action.Step{}, fmt.Errorf("alert takes 'accept' or 'dismiss', got %q", value)
		}
		return action.Step{Kind: action.WaitForAlert, Value: value}, nil

	case "sleep":
		secs, err := needArg("a duration in seconds")
		if err != nil {
			return action.Step{}, err
		}
		return action.Step{Kind: action.Sleep, Value: secs}, nil

	case "shot":
		path, err := needArg("a file path")
		if err != nil {
			return action.Step{}, err
		}
		return action.Step{Kind: action.Screenshot, Value: path}, nil
	}
	return action.Step{}, fmt.Errorf("unknown command %q (try 'help')", cmd)
}

// parseLocator understands "kind=value" prefixes; bare values are CSS.
func parseLocator(raw string) site.Locator {
	if kind, value, ok := strings.Cut(raw, "="); ok {
		switch site.LocatorKind(kind) {
		case site.ByCSS, site.ByXPath, site.ByName, site.ByID:
			return site.Locator{Kind: site.LocatorKind(kind), Value: value}
		}
	}
	return site.CSS(raw)
}
