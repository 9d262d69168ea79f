package model

import "time"

// Timestamps on the wire are ISO-8601.
const TimestampLayout = time.RFC3339Nano

const DayLayout = "2006-01-02"

// CommitMessage is one repository's commit count for one day.
type CommitMessage struct {
	ID          string `json:"id"`
	Repo        string `json:"repo"`
	CommitCount int    `json:"commit_count"`
	Day         string `json:"day,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// TddMessage is one language's test-adopting project count for one day.
type TddMessage struct {
	ID           string `json:"id"`
	Language     string `json:"language"`
	ProjectCount int    `json:"project_count"`
	Day          string `json:"day,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// WindowMessage carries a whole language aggregate for [From, To].
type WindowMessage struct {
	ID        string         `json:"id"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Languages map[string]int `json:"languages"`
	Timestamp string         `json:"timestamp"`
}
