package server

import (
	"time"

	"github.com/sanonone/wikihop/pkg/search"
)

// SearchRequest is the body of POST /v1/searches.
type SearchRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// PathResponse is returned by GET /v1/path. URLs holds one page URL per
// path element.
type PathResponse struct {
	*search.Result
	URLs []string `json:"urls,omitempty"`
}

// TaskView is the serialized form of a Task.
type TaskView struct {
	ID              string         `json:"id"`
	From            string         `json:"from"`
	To              string         `json:"to"`
	Status          TaskStatus     `json:"status"`
	ProgressMessage string         `json:"progress_message,omitempty"`
	Error           string         `json:"error,omitempty"`
	Result          *search.Result `json:"result,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	FinishedAt      *time.Time     `json:"finished_at,omitempty"`
}

// TitlesResponse is returned by GET /v1/titles.
type TitlesResponse struct {
	Prefix string   `json:"prefix"`
	Titles []string `json:"titles"`
}
