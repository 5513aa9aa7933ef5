package constants

// PipelineState is the canonical per-document pipeline state.
type PipelineState string

// Stable values (logged and stored as these exact strings).
const (
	StateReceived   PipelineState = "RECEIVED"
	StateExtracting PipelineState = "EXTRACTING" // provider routing in progress
	StateParsed     PipelineState = "PARSED"     // raw text decoded into a candidate mapping
	StateNormalized PipelineState = "NORMALIZED" // canonical bill record built
	StateImputed    PipelineState = "IMPUTED"    // usage series completed
	StateProjected  PipelineState = "PROJECTED"  // financial model computed (or skipped with reason)
	StateScored     PipelineState = "SCORED"
	StateComplete   PipelineState = "COMPLETE"
	StateFailed     PipelineState = "FAILED" // terminal; reachable only from EXTRACTING or NORMALIZED
)
