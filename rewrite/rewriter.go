package rewrite

import (
	"log/slog"
	"strings"

	coderun "github.com/qiskit-studio/coderun"
)

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(r *Rewriter) { r.logger = l }
}

// Rewriter applies the rule registry to incoming code buffers. It is
// constructed once at startup with the process mode and is safe for
// unsynchronized concurrent use: the mode is immutable and the registry
// is read-only.
type Rewriter struct {
	mode   coderun.Mode
	logger *slog.Logger
}

// New creates a Rewriter for the given mode.
func New(mode coderun.Mode, opts ...Option) *Rewriter {
	r := &Rewriter{mode: mode, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Result is the outcome of one Apply call.
type Result struct {
	Code string
	Kind Kind
}

// Apply rewrites code according to the supplied credential and the process
// mode. A credential with a non-empty token selects the token-present
// family regardless of mode; otherwise local mode selects the token-absent
// family and cloud mode leaves the buffer untouched. "No match" is a
// normal terminal state, never an error.
func (r *Rewriter) Apply(code string, cred *coderun.Credential) Result {
	if cred.Valid() {
		return r.applyTokenPresent(code, cred)
	}
	if r.mode != coderun.ModeLocal {
		r.logger.Debug("rewrite: cloud mode without token, buffer unchanged")
		return Result{Code: code, Kind: NoMatch}
	}
	return r.applyTokenAbsent(code)
}

// applyTokenPresent walks the token-present family in priority order and
// applies the first matching rule.
func (r *Rewriter) applyTokenPresent(code string, cred *coderun.Credential) Result {
	for _, rule := range tokenPresentRules {
		if rule.matches(code) {
			r.logger.Info("rewrite: injecting credential",
				"rule", rule.kind.String(),
				"channel", cred.ChannelOrDefault(),
				"instance", cred.Instance != "",
				"region", cred.Region)
			return Result{Code: rule.rewrite(code, cred), Kind: rule.kind}
		}
	}
	r.logger.Debug("rewrite: no token-injection pattern matched, buffer unchanged")
	return Result{Code: code, Kind: NoMatch}
}

// applyTokenAbsent swaps remote-service configuration for the local
// simulator: first via the labeled section, then via the legacy full-block
// patterns. Every line referencing runtime options is stripped from the
// result since those options have no meaning against the simulator.
func (r *Rewriter) applyTokenAbsent(code string) Result {
	if strings.Contains(code, configSectionMarker) {
		doc := ParseSections(code)
		sec := doc.Find(func(header string) bool {
			return strings.Contains(header, "STEP 0") && strings.Contains(header, "IBM Quantum Config")
		})
		if sec != nil {
			r.logger.Info("rewrite: replacing labeled config section with local simulator")
			sec.Body = "\n" + simulatorBlock + "\n\n"
			return Result{Code: stripOptionsLines(doc.String()), Kind: SectionSplit}
		}
	}

	for i, re := range legacyFullRes {
		if re.MatchString(code) {
			r.logger.Info("rewrite: replacing legacy config block with local simulator", "pattern", i+1)
			replaced := re.ReplaceAllLiteralString(code, simulatorBlock)
			return Result{Code: stripOptionsLines(replaced), Kind: LegacyFull}
		}
	}

	r.logger.Debug("rewrite: no local-simulator pattern matched, buffer unchanged")
	return Result{Code: code, Kind: NoMatch}
}
