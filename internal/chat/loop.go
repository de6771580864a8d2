package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"glmchat/internal/llm"
	"glmchat/internal/metrics"
)

// Sentinel commands, compared after trimming surrounding whitespace.
const (
	CommandStop  = "stop"
	CommandClear = "clear"
)

// Loop is one interactive session. History and continuation state live for
// the whole session and are reset only by the clear command.
type Loop struct {
	Model     llm.Model
	Tokenizer llm.Tokenizer
	Params    llm.Params

	In  io.Reader
	Out io.Writer
	// Clear wipes the terminal. Nil means no side effect.
	Clear func() error
	// Stop is checked between streamed steps. Nil means never stopped.
	Stop *StopSignal

	Banner         string
	UserLabel      string
	AssistantLabel string

	Log zerolog.Logger

	history llm.History
	state   llm.State
	session string
	log     zerolog.Logger
}

// History returns the conversation so far.
func (l *Loop) History() llm.History { return l.history }

// State returns the continuation state that the next turn will pass on.
func (l *Loop) State() llm.State { return l.state }

// Run prints the banner and serves turns until the stop command, end of
// input or cancellation of ctx, all of which return nil. Read and
// generation failures are returned.
func (l *Loop) Run(ctx context.Context) error {
	if l.Stop == nil {
		l.Stop = &StopSignal{}
	}
	done := make(chan struct{})
	defer close(done)
	lines := readLines(l.In, done)

	l.reset()
	l.printf("%s\n", l.Banner)
	defer func() {
		l.log.Debug().Int("turns", len(l.history)).Str("transcript", BuildTranscript(l.Banner, l.history)).Msg("session ended")
	}()

	for {
		l.printf("\n%s", l.UserLabel)
		var in line
		select {
		case <-ctx.Done():
			l.printf("\n")
			return nil
		case v, ok := <-lines:
			if !ok {
				v = line{err: io.EOF}
			}
			in = v
		}
		if in.err != nil {
			if errors.Is(in.err, io.EOF) {
				l.printf("\n")
				return nil
			}
			return fmt.Errorf("read input: %w", in.err)
		}

		switch strings.TrimSpace(in.text) {
		case CommandStop:
			return nil
		case CommandClear:
			l.clear()
			continue
		}
		if err := l.turn(ctx, in.text); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// reset starts a new session: empty history, empty state and a fresh id.
func (l *Loop) reset() {
	l.history = nil
	l.state = llm.EmptyState
	l.session = uuid.NewString()
	l.log = l.Log.With().Str("component", "chat").Str("session", l.session).Logger()
}

func (l *Loop) clear() {
	prev := len(l.history)
	l.reset()
	metrics.IncClear()
	if l.Clear != nil {
		if err := l.Clear(); err != nil {
			l.log.Warn().Err(err).Msg("clear screen failed")
		}
	}
	l.log.Debug().Int("dropped_turns", prev).Msg("history cleared")
	l.printf("%s\n", BuildTranscript(l.Banner, l.history))
}

// turn streams one answer. The last step received, including one that
// arrives together with a stop request, becomes the new history and state.
func (l *Loop) turn(ctx context.Context, query string) error {
	l.observeQuery(query)
	l.printf("\n%s", l.AssistantLabel)

	l.Stop.begin()
	defer l.Stop.end()

	var (
		start   = time.Now()
		last    llm.Step
		got     bool
		printed int
		steps   int
		outcome = metrics.OutcomeCompleted
	)
	for step, err := range l.Model.StreamChat(ctx, l.Tokenizer, query, l.history, l.Params, l.state) {
		if err != nil {
			l.printf("\n")
			metrics.ObserveTurn(metrics.OutcomeError, steps, time.Since(start))
			return fmt.Errorf("generate: %w", err)
		}
		last, got = step, true
		steps++
		if l.Stop.take() {
			outcome = metrics.OutcomeStopped
			break
		}
		printed = l.printDelta(step.Text, printed)
	}
	l.printf("\n")

	if got {
		l.history, l.state = last.History, last.State
	}
	elapsed := time.Since(start)
	metrics.ObserveTurn(outcome, steps, elapsed)
	l.log.Debug().Str("outcome", outcome).Int("steps", steps).Dur("elapsed", elapsed).Int("turns", len(l.history)).Msg("turn finished")
	return nil
}

// printDelta prints the part of text beyond the printed cursor and returns
// the new cursor. Text shorter than the cursor prints nothing and clamps it.
func (l *Loop) printDelta(text string, printed int) int {
	if len(text) > printed {
		l.printf("%s", text[printed:])
	}
	return len(text)
}

func (l *Loop) observeQuery(query string) {
	if l.Tokenizer == nil {
		return
	}
	ids, err := l.Tokenizer.Encode(query)
	if err != nil {
		l.log.Debug().Err(err).Msg("tokenize query")
		return
	}
	metrics.ObserveQueryTokens(len(ids))
}

func (l *Loop) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(l.Out, format, args...)
}
