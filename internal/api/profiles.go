package api

import (
	"sync"
	"time"
)

const (
	StateRunning   = "RUNNING"
	StateCompleted = "COMPLETED"
	StateFailed    = "FAILED"
)

type QueryProfile struct {
	QueryID   string `json:"queryId"`
	Query     string `json:"query"`
	State     string `json:"state"`
	User      string `json:"user"`
	Foreman   string `json:"foreman"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime,omitempty"`
}

type ProfilesSnapshot struct {
	RunningQueries  []QueryProfile `json:"runningQueries"`
	FinishedQueries []QueryProfile `json:"finishedQueries"`
	Errors          []string       `json:"errors"`
}

// ProfileLog tracks running queries and keeps the most recent finished ones,
// newest first. It is safe for concurrent use.
type ProfileLog struct {
	mu       sync.Mutex
	limit    int
	foreman  string
	running  map[string]QueryProfile
	order    []string
	finished []QueryProfile
}

func NewProfileLog(limit int, foreman string) *ProfileLog {
	if limit <= 0 {
		limit = 100
	}
	return &ProfileLog{limit: limit, foreman: foreman, running: map[string]QueryProfile{}}
}

func (l *ProfileLog) Start(queryID, statement string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running[queryID] = QueryProfile{
		QueryID:   queryID,
		Query:     statement,
		State:     StateRunning,
		User:      "anonymous",
		Foreman:   l.foreman,
		StartTime: at.UnixMilli(),
	}
	l.order = append(l.order, queryID)
}

func (l *ProfileLog) Finish(queryID, state string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	profile, ok := l.running[queryID]
	if !ok {
		return
	}
	delete(l.running, queryID)
	for i, id := range l.order {
		if id == queryID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}

	profile.State = state
	profile.EndTime = at.UnixMilli()
	l.finished = append([]QueryProfile{profile}, l.finished...)
	if len(l.finished) > l.limit {
		l.finished = l.finished[:l.limit]
	}
}

func (l *ProfileLog) Snapshot() ProfilesSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	running := make([]QueryProfile, 0, len(l.order))
	for _, id := range l.order {
		running = append(running, l.running[id])
	}
	finished := make([]QueryProfile, len(l.finished))
	copy(finished, l.finished)
	return ProfilesSnapshot{RunningQueries: running, FinishedQueries: finished, Errors: []string{}}
}
