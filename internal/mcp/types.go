package mcp

// --- Tool Arguments ---

type FindPathArgs struct {
	From           string  `json:"from" jsonschema:"Title of the page to start from"`
	To             string  `json:"to" jsonschema:"Title of the page to reach"`
	MaxExplored    int     `json:"max_explored,omitempty" jsonschema:"Give up after dequeuing this many titles (0 keeps the server setting)"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty" jsonschema:"Give up after this many seconds (0 keeps the server setting)"`
}

// Step is one title of a path and the way it was reached: start, direct,
// redirect or normalized.
type Step struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
	URL   string `json:"url"`
}

type FindPathResult struct {
	Outcome         string `json:"outcome"`
	Hops            int    `json:"hops"`
	Path            []Step `json:"path,omitempty"`
	PathDescription string `json:"path_description"` // Rendered summary and path for the LLM
	Explored        int    `json:"explored"`
}

type ListTitlesArgs struct {
	Prefix string `json:"prefix" jsonschema:"Leading part of the titles to list, case sensitive"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max number of titles (default 20)"`
}

type ListTitlesResult struct {
	Titles []string `json:"titles"`
}

type ResolveTitleArgs struct {
	Title string `json:"title" jsonschema:"Title to look up and follow through redirects"`
}

type ResolveTitleResult struct {
	Title  string `json:"title"`            // As stored
	Page   string `json:"page,omitempty"`   // Page that owns the links
	Chain  []Step `json:"chain,omitempty"`  // Redirects and normalized lookups followed
	Reason string `json:"reason,omitempty"` // Why no page was reached
	Links  int    `json:"links"`
}
