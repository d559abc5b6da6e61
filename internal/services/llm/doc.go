// Package llm provides the OpenRouter chat client the generation stages and
// preflight share.
//
// Every request asks for a JSON object at temperature zero: planning and
// drafting send fresh conversations, repair replays the earlier assistant
// draft and asks for corrections, and preflight sends a fixed probe to verify
// the key and model. Complete returns the raw content plus token usage;
// decoding belongs to the callers.
//
// # Endpoint
//
// Config needs api_key and model. BaseURL names the API root (OpenRouter when
// unset); the client appends /chat/completions itself. Referer, title and the
// request timeout are optional.
//
// # Retries
//
// HTTP 408/429/5xx statuses, network timeouts and empty-content responses
// retry with doubling backoff per RetryPolicy (five attempts from one second,
// capped at ten, by default). A Retry-After header overrides the computed
// delay; other client errors and context cancellation end the request at
// once.
package llm
