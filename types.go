package coderun

import "time"

// Mode is the process-wide execution mode, fixed at startup and never
// mutated afterwards. It decides what happens to code that arrives without
// a credential: in local mode the remote-backend configuration is swapped
// for a local simulator, in cloud mode the code runs as-is.
type Mode int

const (
	ModeLocal Mode = iota
	ModeCloud
)

func (m Mode) String() string {
	if m == ModeCloud {
		return "cloud"
	}
	return "local"
}

// DefaultChannel is the runtime service channel used when the caller
// supplies a token without naming one.
const DefaultChannel = "ibm_quantum"

// Credential is the caller-supplied bundle authorizing use of a remote
// quantum backend. A Credential without a token is meaningless and is
// treated everywhere as absent.
type Credential struct {
	Token    string
	Channel  string
	Instance string
	Region   string
}

// Valid reports whether c carries a usable token.
func (c *Credential) Valid() bool {
	return c != nil && c.Token != ""
}

// ChannelOrDefault returns the configured channel, falling back to
// DefaultChannel.
func (c *Credential) ChannelOrDefault() string {
	if c == nil || c.Channel == "" {
		return DefaultChannel
	}
	return c.Channel
}

// Request is one snippet-execution request. Code may be empty; executing
// an empty buffer is valid and yields the no-output sentinel.
type Request struct {
	Code       string
	Credential *Credential
}

// Outcome is the captured result of one execution attempt. It is always
// rendered as human-readable text: faults and timeouts are described in
// Output rather than surfaced as errors. Fault and TimedOut let callers
// classify the outcome without matching on the text.
type Outcome struct {
	Output   string
	Fault    bool
	TimedOut bool
	Elapsed  time.Duration
}

// --- Audit and document records ---

// ExecutionRecord is one row of the execution audit log.
type ExecutionRecord struct {
	ID          string `json:"id"`
	Mode        string `json:"mode"`
	Rule        string `json:"rule"` // rewrite rule that fired, "no_match" otherwise
	Fault       bool   `json:"fault"`
	TimedOut    bool   `json:"timed_out"`
	ElapsedMS   int64  `json:"elapsed_ms"`
	OutputBytes int    `json:"output_bytes"`
	CreatedAt   int64  `json:"created_at"`
}

// Document is an ingested tutorial document.
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// Chunk is one searchable slice of a Document.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	ChunkIndex int    `json:"chunk_index"`
}
