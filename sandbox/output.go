package sandbox

import (
	"fmt"
	"strings"
	"time"

	coderun "github.com/qiskit-studio/coderun"
)

// NoOutputSentinel is returned when execution succeeds without writing
// anything, so callers never have to interpret an empty string.
const NoOutputSentinel = "Code executed successfully (no output)"

// tracebackMarker is the first line of a CPython traceback.
const tracebackMarker = "Traceback (most recent call last):"

// finalize shapes one captured output stream into an Outcome. Faults are
// rendered as text: a single "Error executing code:" line followed by
// whatever was captured before the fault.
func finalize(captured string, elapsed time.Duration, waitErr error, timedOut bool, budget time.Duration) coderun.Outcome {
	if timedOut {
		return coderun.Outcome{
			Output:   fmt.Sprintf("Error: Code execution timed out after %s.", budget),
			TimedOut: true,
			Elapsed:  elapsed,
		}
	}
	if waitErr != nil {
		text := fmt.Sprintf("Error executing code: %s\n%s", faultReason(captured, waitErr), captured)
		return coderun.Outcome{Output: normalizeEscapes(text), Fault: true, Elapsed: elapsed}
	}
	if captured == "" {
		return coderun.Outcome{Output: NoOutputSentinel, Elapsed: elapsed}
	}
	return coderun.Outcome{Output: normalizeEscapes(captured), Elapsed: elapsed}
}

// faultReason derives a one-line description of a fault. CPython prints
// the exception as the last line of the traceback; prefer that over the
// bare exit status.
func faultReason(captured string, waitErr error) string {
	if strings.Contains(captured, tracebackMarker) {
		lines := strings.Split(strings.TrimRight(captured, "\n"), "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			if s := strings.TrimSpace(lines[i]); s != "" {
				return s
			}
		}
	}
	return waitErr.Error()
}

// normalizeEscapes collapses doubled escaped-newline sequences into real
// newlines. Some simulation libraries emit pre-escaped text that would
// otherwise render as literal "\n" downstream.
func normalizeEscapes(s string) string {
	return strings.ReplaceAll(s, `\\n`, "\n")
}

// limitedWriter captures up to limit bytes and discards the rest.
type limitedWriter struct {
	buf   strings.Builder
	limit int
}

func newLimitedWriter(limit int) *limitedWriter {
	return &limitedWriter{limit: limit}
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if w.buf.Len() < w.limit {
		remaining := w.limit - w.buf.Len()
		if n > remaining {
			p = p[:remaining]
		}
		w.buf.Write(p)
	}
	return n, nil
}

func (w *limitedWriter) String() string { return w.buf.String() }
