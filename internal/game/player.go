package game

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"clerk/internal/onboarding"
	"clerk/internal/reconcile"
)

// API is the game server as seen by the player.
type API interface {
	Start(ctx context.Context, playerName string) (*Round, error)
	SendDecision(ctx context.Context, session Session, decision reconcile.Decision) (*DecisionResponse, error)
}

// Decider chooses Accept or Reject for a client.
type Decider interface {
	Decide(ctx context.Context, clientID string, record reconcile.ClientRecord) (reconcile.Decision, error)
}

// Evaluator is the onboarding operation the engine decider relies on.
type Evaluator interface {
	EvaluateAs(ctx context.Context, clientID string, record reconcile.ClientRecord, origin onboarding.Origin) (*onboarding.Result, error)
}

// EngineDecider decides with the reconciliation engine.
type EngineDecider struct {
	evaluator Evaluator
}

func NewEngineDecider(evaluator Evaluator) *EngineDecider {
	return &EngineDecider{evaluator: evaluator}
}

func (d *EngineDecider) Decide(ctx context.Context, clientID string, record reconcile.ClientRecord) (reconcile.Decision, error) {
	result, err := d.evaluator.EvaluateAs(ctx, clientID, record, onboarding.OriginGame)
	if err != nil {
		return "", err
	}
	return result.Decision, nil
}

// ManualDecider asks a human, re-prompting until the answer parses.
type ManualDecider struct {
	in  *bufio.Reader
	out io.Writer
}

func NewManualDecider(in io.Reader, out io.Writer) *ManualDecider {
	return &ManualDecider{in: bufio.NewReader(in), out: out}
}

func (d *ManualDecider) Decide(ctx context.Context, clientID string, _ reconcile.ClientRecord) (reconcile.Decision, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprintf(d.out, "Client %s. Choose your action (Accept/Reject): ", clientID)
		line, err := d.in.ReadString('\n')
		if answer := strings.TrimSpace(line); answer != "" {
			if decision, perr := reconcile.ParseDecision(answer); perr == nil {
				return decision, nil
			}
			fmt.Fprintf(d.out, "%q is not a decision\n", answer)
		}
		if err != nil {
			return "", fmt.Errorf("read decision: %w", err)
		}
	}
}

// Summary describes a finished game.
type Summary struct {
	SessionID string
	Rounds    int
	Decisions []RoundDecision
	Status    string
	Score     *int
}

// RoundDecision is one answered client.
type RoundDecision struct {
	ClientID string
	Decision reconcile.Decision
	Status   string
}

// ErrNoNextClient ends a game whose server neither declared game over nor
// handed out another client.
var ErrNoNextClient = errors.New("game server sent no next client")

// Player runs the extract, decide and send loop.
type Player struct {
	api       API
	extractor Extractor
	decider   Decider
	logger    *slog.Logger
	name      string
	maxRounds int
	pause     time.Duration
}

type PlayerOption func(*Player)

func WithPlayerLogger(logger *slog.Logger) PlayerOption {
	return func(p *Player) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMaxRounds stops after n rounds; 0 plays until game over.
func WithMaxRounds(n int) PlayerOption {
	return func(p *Player) {
		p.maxRounds = n
	}
}

// WithPause waits between rounds.
func WithPause(d time.Duration) PlayerOption {
	return func(p *Player) {
		p.pause = d
	}
}

func NewPlayer(api API, extractor Extractor, decider Decider, name string, opts ...PlayerOption) *Player {
	p := &Player{
		api:       api,
		extractor: extractor,
		decider:   decider,
		name:      name,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play starts a session and answers rounds until the server ends the game,
// the round limit is hit or ctx is done.
func (p *Player) Play(ctx context.Context) (*Summary, error) {
	round, err := p.api.Start(ctx, p.name)
	if err != nil {
		return nil, err
	}
	summary := &Summary{SessionID: round.Session.SessionID}

	for {
		record, err := p.extractor.Extract(ctx, round.Documents)
		if err != nil {
			return summary, fmt.Errorf("extract client %s: %w", round.Session.ClientID, err)
		}
		decision, err := p.decider.Decide(ctx, round.Session.ClientID, record)
		if err != nil {
			return summary, fmt.Errorf("decide client %s: %w", round.Session.ClientID, err)
		}
		resp, err := p.api.SendDecision(ctx, round.Session, decision)
		if err != nil {
			return summary, err
		}

		summary.Rounds++
		summary.Status = resp.Status
		summary.Score = resp.Score
		summary.Decisions = append(summary.Decisions, RoundDecision{
			ClientID: round.Session.ClientID,
			Decision: decision,
			Status:   resp.Status,
		})
		p.logger.InfoContext(ctx, "round answered",
			"session_id", round.Session.SessionID,
			"client_id", round.Session.ClientID,
			"decision", decision,
			"status", resp.Status,
			"round", summary.Rounds,
		)

		if resp.GameOver() {
			return summary, nil
		}
		if p.maxRounds > 0 && summary.Rounds >= p.maxRounds {
			return summary, nil
		}
		if resp.Next == nil {
			return summary, ErrNoNextClient
		}
		round = resp.Next

		if p.pause > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(p.pause):
			}
		}
	}
}
