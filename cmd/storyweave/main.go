// Command storyweave continues a story file with one model-generated passage.
// It loads the story as canon, seeds conversation memory from the trailing
// chunks, runs a single exchange, and either commits the new passage to the
// story file or discards it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/victorarias/storyweave/cmd/storyweave/config"
	"github.com/victorarias/storyweave/story/canon"
	"github.com/victorarias/storyweave/story/engine"
	"github.com/victorarias/storyweave/story/events"
	"github.com/victorarias/storyweave/story/prompts"
	providerAnthropic "github.com/victorarias/storyweave/story/providers/anthropic"
	providerVertex "github.com/victorarias/storyweave/story/providers/vertex"
	"github.com/victorarias/storyweave/story/simulate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "storyweave:", err)
		os.Exit(1)
	}
}

func run() error {
	opts, err := parseCLIArgs(os.Args[1:])
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	promptMgr, err := prompts.NewManager(cfg.SystemPromptsPath)
	if err != nil {
		return err
	}
	if opts.PromptName != "" {
		if err := promptMgr.SetActive(opts.PromptName); err != nil {
			return err
		}
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.RunTimeoutSeconds)*time.Second)
	defer cancel()

	store, err := canon.NewStore(opts.StoryPath)
	if err != nil {
		return err
	}
	story, err := store.Load(ctx)
	if err != nil {
		return err
	}

	hist := simulate.Seed(story.Chunks(), simulate.Config{
		ChunkLimit: cfg.ChunkLimit,
		MaxTokens:  cfg.ContextTokens,
	})

	runner, err := engine.New(engine.Config{
		Generator: generator,
		History:   hist,
		Events:    progressSink(os.Stderr),
	})
	if err != nil {
		return err
	}

	guidance, err := resolveGuidance(opts.Guidance, os.Stdin, stdinIsTTY())
	if err != nil {
		return err
	}

	res, err := runner.Run(ctx, promptMgr.ActiveContent(), engine.WrapGuidance(cfg.GuidanceTag, guidance))
	if err != nil {
		return err
	}

	if opts.ShowThinking && res.Thinking != "" {
		fmt.Fprintln(os.Stderr, "--- thinking ---")
		fmt.Fprintln(os.Stderr, res.Thinking)
		fmt.Fprintln(os.Stderr, "---")
	}
	if hist.OverBudget() {
		fmt.Fprintln(os.Stderr, "storyweave: note: a single passage exceeds the context budget; older context was dropped")
	}
	fmt.Println(res.Narrative)

	if !opts.Commit {
		hist.DiscardProposal()
		return nil
	}

	hist.CommitProposal()
	story.Append(res.Narrative)
	return store.Save(ctx, story)
}

func newGenerator(cfg config.Config) (engine.Generator, error) {
	switch cfg.Provider {
	case config.ProviderVertex:
		return providerVertex.NewFromEnv()
	default:
		return providerAnthropic.NewFromEnv()
	}
}

func progressSink(w *os.File) events.Sink {
	return events.SinkFunc(func(e events.Event) {
		switch e.Type {
		case events.GenerateStart:
			fmt.Fprintln(w, "storyweave: generating...")
		case events.GenerateError:
			fmt.Fprintf(w, "storyweave: generation failed: %v\n", e.Err)
		case events.GenerateEnd:
			if e.Tokens > 0 {
				fmt.Fprintf(w, "storyweave: done (%d tokens)\n", e.Tokens)
			}
		}
	})
}
