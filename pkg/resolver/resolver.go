// Package resolver picks the command signature a token sequence was meant
// for.
//
// Resolution runs in two phases. Rank scores every command of the table in
// partial mode and keeps all commands that share the best score. Each of
// those is then validated strictly, in table order; the first one that
// validates wins. Literal prefix mismatches during that second phase are
// expected and skipped quietly. Other failures are kept so a caller can
// explain why a close candidate was rejected.
//
// When nothing validates, Resolve returns a *NoMatchError listing the usage
// of up to ten top-ranked candidates.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cephforge/cephcli/pkg/argtype"
	"github.com/cephforge/cephcli/pkg/matcher"
	"github.com/cephforge/cephcli/pkg/signature"
)

// DefaultMaxCandidates bounds the candidates reported on failure.
const DefaultMaxCandidates = 10

var (
	// ErrNoMatch is matched by every *NoMatchError.
	ErrNoMatch = errors.New("no valid command found")
	// ErrNoTokens is returned for an empty command line.
	ErrNoTokens = errors.New("no command given")
)

// Options are caller settings merged into a successful result.
type Options struct {
	// Format is stored under "format" when set.
	Format string
	// Threshold is stored under "threshold" when non-zero.
	Threshold int
}

// Resolution is an accepted command.
type Resolution struct {
	Command *signature.Command
	Args    matcher.Args
}

// CandidateFailure records why a top-ranked candidate was rejected.
type CandidateFailure struct {
	Command *signature.Command
	Err     error
}

// NoMatchError is returned when no candidate validates.
type NoMatchError struct {
	Tokens     []string
	Score      int
	Candidates []*signature.Command
	Failures   []CandidateFailure
}

// Error implements the error interface.
func (e *NoMatchError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNoMatch, strings.Join(e.Tokens, " "))
}

// Is matches ErrNoMatch.
func (e *NoMatchError) Is(target error) bool {
	return target == ErrNoMatch
}

// Usage returns the concise usage line of each reported candidate.
func (e *NoMatchError) Usage() []string {
	lines := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		lines[i] = c.Sig.Concise()
	}
	return lines
}

// Resolver resolves token sequences against a command table.
type Resolver struct {
	table         *signature.Table
	logger        *slog.Logger
	maxCandidates int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger receiving ranking diagnostics at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMaxCandidates bounds the candidates kept in a NoMatchError.
func WithMaxCandidates(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxCandidates = n
		}
	}
}

// New creates a resolver for table.
func New(table *signature.Table, opts ...Option) *Resolver {
	r := &Resolver{
		table:         table,
		logger:        slog.Default(),
		maxCandidates: DefaultMaxCandidates,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores every command in partial mode and returns the best score
// with all commands reaching it, in table order.
func (r *Resolver) Rank(tokens []string) (int, []*signature.Command) {
	best := 0
	var candidates []*signature.Command

	for _, cmd := range r.table.Commands() {
		score := matcher.Score(tokens, cmd.Sig)
		switch {
		case score > best:
			r.logger.Debug("better match",
				slog.Int("score", score),
				slog.Int("previous", best),
				slog.String("tag", cmd.Tag),
				slog.String("usage", cmd.Sig.Concise()))
			best = score
			candidates = []*signature.Command{cmd}
		case score == best:
			r.logger.Debug("equal match",
				slog.Int("score", score),
				slog.String("tag", cmd.Tag),
				slog.String("usage", cmd.Sig.Concise()))
			candidates = append(candidates, cmd)
		}
	}

	return best, candidates
}

// Resolve ranks the table against tokens, then validates the best
// candidates strictly and returns the first that matches.
func (r *Resolver) Resolve(tokens []string, opts Options) (*Resolution, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}

	score, candidates := r.Rank(tokens)
	r.logger.Debug("ranked candidates",
		slog.Int("score", score),
		slog.Int("count", len(candidates)))

	var failures []CandidateFailure
	for _, cmd := range candidates {
		args, err := matcher.Validate(tokens, cmd.Sig)
		if err == nil {
			mergeOptions(args, opts)
			return &Resolution{Command: cmd, Args: args}, nil
		}
		if argtype.IsSoft(err) {
			continue
		}

		r.logger.Debug("invalid command",
			slog.String("tokens", strings.Join(tokens, " ")),
			slog.String("error", err.Error()),
			slog.String("did_you_mean", cmd.Sig.Concise()),
			slog.String("help", cmd.Help))
		failures = append(failures, CandidateFailure{Command: cmd, Err: err})
	}

	if len(candidates) > r.maxCandidates {
		candidates = candidates[:r.maxCandidates]
	}
	return nil, &NoMatchError{
		Tokens:     append([]string(nil), tokens...),
		Score:      score,
		Candidates: candidates,
		Failures:   failures,
	}
}

// Describe returns the commands that best match a partial command line,
// for help output. Unlike Resolve it never validates strictly.
func (r *Resolver) Describe(tokens []string) []*signature.Command {
	if len(tokens) == 0 {
		return r.table.Commands()
	}
	score, candidates := r.Rank(tokens)
	if score == 0 {
		return nil
	}
	return candidates
}

func mergeOptions(args matcher.Args, opts Options) {
	if opts.Format != "" {
		args["format"] = opts.Format
	}
	if opts.Threshold != 0 {
		args["threshold"] = opts.Threshold
	}
}
