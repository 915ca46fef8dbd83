package webui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

const redirectPrompt = "Redirect URL: "

// Prompt is a web UI for machines without a usable browser callback. It prints
// the authorization URL and reads the URL the browser was redirected to from
// the terminal. An empty line, EOF or Ctrl+C cancels.
type Prompt struct {
	out         io.Writer
	readLine    func(prompt string) (string, error)
	openBrowser func(string) error
}

// PromptOption configures a Prompt.
type PromptOption func(*Prompt)

// WithPromptOutput sets where the instructions are printed.
func WithPromptOutput(w io.Writer) PromptOption {
	return func(p *Prompt) {
		if w != nil {
			p.out = w
		}
	}
}

// WithLineReader replaces the terminal line reader.
func WithLineReader(fn func(prompt string) (string, error)) PromptOption {
	return func(p *Prompt) {
		if fn != nil {
			p.readLine = fn
		}
	}
}

// WithPromptBrowser also tries to open the authorization URL in a browser.
func WithPromptBrowser(fn func(string) error) PromptOption {
	return func(p *Prompt) {
		p.openBrowser = fn
	}
}

// NewPrompt creates a paste-prompt web UI reading from the terminal.
func NewPrompt(opts ...PromptOption) *Prompt {
	p := &Prompt{
		out:      os.Stderr,
		readLine: readTerminalLine,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Authenticate implements WebUI.
func (p *Prompt) Authenticate(ctx context.Context, requestURI, redirectURI string) (string, error) {
	fmt.Fprintf(p.out, "To sign in, open the following URL in a browser:\n\n  %s\n\n", requestURI)
	fmt.Fprintf(p.out, "After signing in, paste the full URL starting with %s\n", redirectURI)

	if p.openBrowser != nil {
		if err := p.openBrowser(requestURI); err != nil {
			fmt.Fprintf(p.out, "(could not open a browser: %v)\n", err)
		}
	}

	for {
		line, err := p.read(ctx)
		if err != nil {
			return "", err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			return "", ErrCanceled
		}
		if HasRedirectPrefix(line, redirectURI) {
			return line, nil
		}
		fmt.Fprintf(p.out, "That URL does not start with %s, try again or press Enter to cancel.\n", redirectURI)
	}
}

type lineResult struct {
	line string
	err  error
}

// read waits for one line or ctx. A pending terminal read is abandoned on cancellation.
func (p *Prompt) read(ctx context.Context) (string, error) {
	ch := make(chan lineResult, 1)
	go func() {
		line, err := p.readLine(redirectPrompt)
		ch <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if errors.Is(res.err, readline.ErrInterrupt) || errors.Is(res.err, io.EOF) {
			return "", ErrCanceled
		}
		if res.err != nil {
			return "", fmt.Errorf("failed to read redirect URL: %w", res.err)
		}
		return res.line, nil
	}
}

func readTerminalLine(prompt string) (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryLimit:    -1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()
	return rl.Readline()
}
