package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-listopia/config"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v2"
)

// promptMissing asks for the list URL, output file and page count when they
// were not given on the command line and stdin is a terminal.
func promptMissing(c *cli.Context, cfg *config.Config) error {
	missing := !c.IsSet("url") || !c.IsSet("output") || !c.IsSet("pages")
	if !missing || !isTerminal(os.Stdin) {
		return nil
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if !c.IsSet("url") {
		answer, err := ask(line, "List URL to export: ", func(s string) error {
			return config.ValidateListURL(s, cfg.ListPrefix)
		})
		if err != nil {
			return err
		}
		cfg.ListURL = answer
	}

	if !c.IsSet("output") {
		answer, err := ask(line, fmt.Sprintf("Output file name (e.g. %s): ", cfg.OutputFile), func(s string) error {
			return config.ValidateOutputFile(cfg.OutputFormat, s)
		})
		if err != nil {
			return err
		}
		cfg.OutputFile = answer
	}

	if !c.IsSet("pages") {
		answer, err := ask(line, fmt.Sprintf("Number of pages to scrape (1-%d): ", config.MaxPages), func(s string) error {
			pages, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("pages must be a whole number")
			}
			return config.ValidatePages(pages)
		})
		if err != nil {
			return err
		}
		cfg.Pages, _ = strconv.Atoi(answer)
	}

	return nil
}

// ask repeats prompt until validate accepts the answer.
func ask(line *liner.State, prompt string, validate func(string) error) (string, error) {
	for {
		answer, err := line.Prompt(prompt)
		if err != nil {
			return "", err
		}
		answer = strings.TrimSpace(answer)
		if err := validate(answer); err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		line.AppendHistory(answer)
		return answer, nil
	}
}
