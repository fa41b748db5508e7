package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

type cliOptions struct {
	StoryPath    string
	Guidance     string
	Commit       bool
	ShowThinking bool
	PromptName   string
}

func parseCLIArgs(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("storyweave", flag.ContinueOnError)
	var out bytes.Buffer
	fs.SetOutput(&out)

	fs.StringVar(&opts.StoryPath, "story", "", "Story file to load and continue.")
	fs.StringVar(&opts.Guidance, "message", "", "Guidance for the next passage (default: continue the story).")
	fs.StringVar(&opts.Guidance, "m", "", "Shorthand for --message.")
	fs.BoolVar(&opts.Commit, "commit", false, "Commit the generated passage to the story file.")
	fs.BoolVar(&opts.ShowThinking, "show-thinking", false, "Print the model's <think> planning to stderr.")
	fs.StringVar(&opts.PromptName, "prompt", "", "Name of the system prompt to activate.")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("%w\n%s", err, out.String())
	}
	if strings.TrimSpace(opts.Guidance) == "" && fs.NArg() > 0 {
		opts.Guidance = strings.Join(fs.Args(), " ")
	}
	opts.StoryPath = strings.TrimSpace(opts.StoryPath)
	if opts.StoryPath == "" {
		return cliOptions{}, fmt.Errorf("--story is required")
	}
	return opts, nil
}

func resolveGuidance(explicit string, in io.Reader, stdinTTY bool) (string, error) {
	guidance := strings.TrimSpace(explicit)
	if guidance != "" || stdinTTY {
		return guidance, nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func stdinIsTTY() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return true
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
