// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

// Package session runs a connected player's line-oriented session: lines
// starting with ';' are evaluated as script, anything else is dispatched
// as a command, and notify messages are written as they arrive.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/roomoo/roo/internal/command"
	"github.com/roomoo/roo/internal/core"
	"github.com/roomoo/roo/internal/observability"
	"github.com/roomoo/roo/internal/world"
)

// EvalPrefix starts a line evaluated as script.
const EvalPrefix = ";"

// connectHook runs when the session starts.
const connectHook = `if db.has_verb_with_name(system, "user_connected") then system:user_connected(player) end`

// Dispatcher runs command lines.
type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID ulid.ULID, input string) error
}

// Evaluator runs eval lines.
type Evaluator interface {
	Eval(ctx context.Context, src string) (string, error)
}

// Session is one player's connection.
type Session struct {
	id         ulid.ULID
	player     ulid.ULID
	dispatcher Dispatcher
	evaluator  Evaluator
	notifier   *core.Notifier
	out        io.Writer
	metrics    *observability.Metrics
	quitting   bool
}

// Option configures a Session.
type Option func(*Session)

// WithMetrics records session and line counts.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// New creates a session for player writing to out. notifier may be nil.
func New(player ulid.ULID, d Dispatcher, e Evaluator, notifier *core.Notifier, out io.Writer, opts ...Option) *Session {
	s := &Session{
		id:         world.NewID(),
		player:     player,
		dispatcher: d,
		evaluator:  e,
		notifier:   notifier,
		out:        out,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID identifies the session, for example to the rate limiter.
func (s *Session) ID() ulid.ULID { return s.id }

// Run processes lines from in until it is exhausted, the player quits, or
// ctx ends. Messages queued for the player are flushed before returning.
func (s *Session) Run(ctx context.Context, in io.Reader) (err error) {
	defer func() { s.recordEnd(err) }()
	var notes chan string
	if s.notifier != nil {
		notes = s.notifier.Subscribe(s.player)
		defer func() {
			s.notifier.Unsubscribe(s.player, notes)
			for msg := range notes {
				s.send(msg)
			}
		}()
	}

	logger := slog.With("session_id", s.id.String(), "player", s.player.String())
	logger.InfoContext(ctx, "session started")
	defer logger.InfoContext(ctx, "session ended")

	if s.evaluator != nil {
		if _, err := s.evaluator.Eval(s.taskContext(ctx), connectHook); err != nil {
			logger.WarnContext(ctx, "connect hook failed", "error", err)
		}
	}

	lineCh := make(chan string)
	errCh := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lineCh <- scanner.Text():
			case <-done:
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		errCh <- err
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errCh:
			if errors.Is(err, io.EOF) {
				return nil
			}
			logger.DebugContext(ctx, "session read error", "error", err)
			return err

		case line := <-lineCh:
			s.processLine(ctx, line)
			if s.quitting {
				return nil
			}

		case msg := <-notes:
			s.send(msg)
		}
	}
}

// taskContext starts a new task for one line of input.
func (s *Session) taskContext(ctx context.Context) context.Context {
	return core.WithTask(ctx, core.NewTask(s.player))
}

func (s *Session) processLine(ctx context.Context, line string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return
	case trimmed == "QUIT" || trimmed == "@quit":
		s.send("Goodbye!")
		s.quitting = true
	case strings.HasPrefix(trimmed, EvalPrefix):
		s.countLine("eval")
		s.eval(ctx, strings.TrimPrefix(trimmed, EvalPrefix))
	default:
		s.countLine("command")
		if err := s.dispatcher.Dispatch(s.taskContext(ctx), s.id, trimmed); err != nil {
			s.send(command.PlayerMessage(err))
		}
	}
}

func (s *Session) eval(ctx context.Context, src string) {
	if s.evaluator == nil {
		s.send(command.PlayerMessage(command.ErrUnknownCommand(EvalPrefix)))
		return
	}
	out, err := s.evaluator.Eval(s.taskContext(ctx), src)
	if err != nil {
		s.send(formatEvalError(err))
		return
	}
	s.send("=> " + out)
}

func formatEvalError(err error) string {
	if code := world.CodeOf(err); code != "" {
		return fmt.Sprintf("** %s: %s", code, err.Error())
	}
	return "** " + err.Error()
}

func (s *Session) send(msg string) {
	if _, err := fmt.Fprintln(s.out, msg); err != nil {
		observability.RecordSessionWriteFailure()
		slog.Debug("failed to write to session",
			"session_id", s.id.String(),
			"error", err,
		)
	}
}

func (s *Session) countLine(kind string) {
	if s.metrics != nil {
		s.metrics.LinesTotal.WithLabelValues(kind).Inc()
	}
}

func (s *Session) recordEnd(err error) {
	if s.metrics == nil {
		return
	}
	end := "eof"
	switch {
	case s.quitting:
		end = "quit"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		end = "cancelled"
	case err != nil:
		end = "error"
	}
	s.metrics.SessionsTotal.WithLabelValues(end).Inc()
}
