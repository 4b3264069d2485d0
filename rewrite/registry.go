// Package rewrite transforms the IBM Quantum configuration section of a
// Python program before execution. Rules are fixed at process start and
// evaluated in strict priority order; the first matching rule wins and
// every replacement is constructed so that it never re-triggers its own
// rule, making each family idempotent.
package rewrite

import (
	"fmt"
	"regexp"
	"strings"

	coderun "github.com/qiskit-studio/coderun"
)

// Kind identifies which rewrite rule fired, if any.
type Kind int

const (
	NoMatch Kind = iota
	// Token-present family.
	Simulator      // local-simulator block swapped for the remote service
	RemoteNoCred   // credential injected into a bare remote-service block
	RemoteWithCred // stale credential refreshed in a remote-service block
	GenericInject  // parameters injected into a bare service construction call
	// Token-absent family.
	SectionSplit // labeled config section body replaced with the simulator
	LegacyFull   // legacy full-block pattern replaced with the simulator
)

func (k Kind) String() string {
	switch k {
	case Simulator:
		return "simulator"
	case RemoteNoCred:
		return "remote_no_cred"
	case RemoteWithCred:
		return "remote_with_cred"
	case GenericInject:
		return "generic_inject"
	case SectionSplit:
		return "section_split"
	case LegacyFull:
		return "legacy_full"
	}
	return "no_match"
}

// configSectionMarker is the header of the labeled configuration section
// the token-absent family looks for.
const configSectionMarker = "## STEP 0 : IBM Quantum Config"

// genericServiceCall is the bare construction call targeted by the
// token-present catch-all rule.
const genericServiceCall = "QiskitRuntimeService()"

// simulatorBlock replaces remote-service configuration when running
// without a credential in local mode.
const simulatorBlock = `from qiskit_aer import AerSimulator

backend = AerSimulator()
print("Using local simulator...")`

var (
	// Token-present triggers, in priority order.
	simulatorBlockRe = regexp.MustCompile(`from qiskit_aer import AerSimulator\n\nbackend = AerSimulator\(\)\nprint\("Using local simulator\.\.\."\)`)
	remoteNoCredRe   = regexp.MustCompile(`from qiskit_ibm_runtime import QiskitRuntimeService\n\nservice = QiskitRuntimeService\(\)\nbackend = service\.least_busy\(operational=True, simulator=False\)`)
	remoteWithCredRe = regexp.MustCompile(`from qiskit_ibm_runtime import QiskitRuntimeService\n\nservice = QiskitRuntimeService\(token='[^']+'\)\nbackend = service\.least_busy\(operational=True, simulator=False\)`)

	// Token-absent legacy full-block triggers, in priority order. The
	// variant with a trailing backend print is checked first because the
	// plain variant is its prefix.
	legacyFullRes = []*regexp.Regexp{
		regexp.MustCompile(`from qiskit_ibm_runtime import QiskitRuntimeService\n\nservice = QiskitRuntimeService\(token='[^']+'\)\nbackend = service\.least_busy\(operational=True, simulator=False\)\nprint\(f"Using IBM Quantum backend: \{[^}]+\}"\)`),
		remoteNoCredRe,
	}

	// optionsLineRe matches any whole line referencing a runtime options
	// accessor chain. A coarse but deterministic filter: such lines are
	// meaningless against the local simulator and are deleted outright.
	optionsLineRe = regexp.MustCompile(`(?m)^.*\.options\..*\n?`)
)

// tokenRule is one case of the token-present family.
type tokenRule struct {
	kind    Kind
	matches func(code string) bool
	rewrite func(code string, cred *coderun.Credential) string
}

// tokenPresentRules is the token-present family in evaluation order.
var tokenPresentRules = []tokenRule{
	{
		kind:    Simulator,
		matches: simulatorBlockRe.MatchString,
		rewrite: func(code string, cred *coderun.Credential) string {
			return simulatorBlockRe.ReplaceAllLiteralString(code, remoteBlock(cred))
		},
	},
	{
		kind:    RemoteNoCred,
		matches: remoteNoCredRe.MatchString,
		rewrite: func(code string, cred *coderun.Credential) string {
			return remoteNoCredRe.ReplaceAllLiteralString(code, remoteBlock(cred))
		},
	},
	{
		kind:    RemoteWithCred,
		matches: remoteWithCredRe.MatchString,
		rewrite: func(code string, cred *coderun.Credential) string {
			return remoteWithCredRe.ReplaceAllLiteralString(code, remoteBlock(cred))
		},
	},
	{
		kind: GenericInject,
		matches: func(code string) bool {
			return strings.Contains(code, genericServiceCall)
		},
		rewrite: func(code string, cred *coderun.Credential) string {
			injected := "QiskitRuntimeService(\n    " + serviceParams(cred) + "\n)"
			return strings.ReplaceAll(code, genericServiceCall, injected)
		},
	},
}

// MatchTokenPresent returns the token-present rule that would fire for
// code, without applying it. Exposed so rule precedence is testable
// independently of the replacement templates.
func MatchTokenPresent(code string) Kind {
	for _, r := range tokenPresentRules {
		if r.matches(code) {
			return r.kind
		}
	}
	return NoMatch
}

// serviceParams renders the service constructor arguments for cred.
// Channel and token always appear; instance and region only when set.
func serviceParams(cred *coderun.Credential) string {
	params := []string{
		fmt.Sprintf("channel=%q", cred.ChannelOrDefault()),
		fmt.Sprintf("token=%q", cred.Token),
	}
	if cred.Instance != "" {
		params = append(params, fmt.Sprintf("instance=%q", cred.Instance))
	}
	if cred.Region != "" {
		params = append(params, fmt.Sprintf("region=%q", cred.Region))
	}
	return strings.Join(params, ",\n    ")
}

// remoteBlock renders the parameterized remote-service block. The token is
// double-quoted, so the with-credential trigger (single-quoted token) can
// never match the block it produced.
func remoteBlock(cred *coderun.Credential) string {
	return fmt.Sprintf(`from qiskit_ibm_runtime import QiskitRuntimeService

# Initialize IBM Quantum Runtime Service with provided configuration
service = QiskitRuntimeService(
    %s
)
backend = service.least_busy(operational=True, simulator=False)
print(f"Using IBM Quantum backend: {backend.name}")`, serviceParams(cred))
}

// stripOptionsLines deletes every line referencing a runtime options chain.
func stripOptionsLines(code string) string {
	return optionsLineRe.ReplaceAllString(code, "")
}
