package models

import "time"

// Page represents a fetched web page considered during a crawl
type Page struct {
	URL              string    `json:"url"`
	Title            string    `json:"title"`
	Text             string    `json:"text"`
	Links            []Link    `json:"links"`
	HasPasswordField bool      `json:"has_password_field"`
	StatusCode       int       `json:"status_code"`
	FetchedAt        time.Time `json:"fetched_at"`
}

// Link represents a hyperlink from one page to another
type Link struct {
	ToURL      string `json:"to_url"`
	AnchorText string `json:"anchor_text"`
}

// CrawlResult contains the outcomes of a crawl-and-analyze run
type CrawlResult struct {
	Seeds      []string  `json:"seeds"`
	Outcomes   []Outcome `json:"outcomes"`
	Visited    int       `json:"visited"`
	Skipped    int       `json:"skipped"`
	ErrorCount int       `json:"error_count"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Summary aggregates verdict counts over a set of outcomes
type Summary struct {
	Total      int `json:"total"`
	Phishing   int `json:"phishing"`
	Suspicious int `json:"suspicious"`
	Legitimate int `json:"legitimate"`
	Failed     int `json:"failed"`
}
