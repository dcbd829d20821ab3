// Package investigation is the incident case manager: it turns the raw
// stream of engine updates into a per-attacker timeline an analyst can
// review, tag hosts on, and check for recovery (goal hosts no longer
// reachable). This is the analyst-facing layer above the dataflow
// engine.
package investigation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rawblock/attackgraph-engine/internal/engine"
	"github.com/rawblock/attackgraph-engine/pkg/schema"
)

// Incident is a single tracked compromise: one attacker, the hosts
// they're trying to reach, and everything observed about their
// progress so far.
type Incident struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      string          `json:"status"` // active/contained/resolved/archived
	AttackerID  string          `json:"attackerId"`
	GoalHosts   []string        `json:"goalHosts"`
	HostTags    []HostTag       `json:"hostTags"`
	Timeline    []TimelineEvent `json:"timeline"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	compromised map[string]bool
}

// HostTag is an analyst-provided label on a host the attacker has
// touched.
type HostTag struct {
	Host     string    `json:"host"`
	Label    string    `json:"label"`
	Role     string    `json:"role"` // entry-point/pivot/target/patched/unknown
	Notes    string    `json:"notes,omitempty"`
	TaggedAt time.Time `json:"taggedAt"`
	TaggedBy string    `json:"taggedBy,omitempty"`
}

// TimelineEvent is one chronological step in an incident's progress.
type TimelineEvent struct {
	Timestamp   string `json:"timestamp"`
	EventType   string `json:"eventType"` // exec/owns/goal_reached/retracted
	Description string `json:"description"`
	Host        string `json:"host,omitempty"`
	Privilege   string `json:"privilege,omitempty"`
}

// Manager handles CRUD for incidents and routes engine updates to
// whichever incident tracks the matching attacker.
type Manager struct {
	mu    sync.RWMutex
	cases map[string]*Incident
}

// NewManager creates an empty case manager.
func NewManager() *Manager {
	return &Manager{cases: make(map[string]*Incident)}
}

// CreateIncident opens a new case for attackerID pursuing goalHosts. If id
// is empty, one is generated.
func (m *Manager) CreateIncident(id, name, description, attackerID string, goalHosts []string) *Incident {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()
	inc := &Incident{
		ID:          id,
		Name:        name,
		Description: description,
		Status:      "active",
		AttackerID:  attackerID,
		GoalHosts:   goalHosts,
		CreatedAt:   now,
		UpdatedAt:   now,
		compromised: make(map[string]bool),
	}
	m.mu.Lock()
	m.cases[id] = inc
	m.mu.Unlock()
	return inc
}

// GetIncident retrieves a case by ID, or nil if unknown.
func (m *Manager) GetIncident(id string) *Incident {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cases[id]
}

// ListIncidents returns every tracked case.
func (m *Manager) ListIncidents() []*Incident {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]*Incident, 0, len(m.cases))
	for _, inc := range m.cases {
		list = append(list, inc)
	}
	return list
}

// Subscriber builds an engine.Subscriber that fans every update out to
// whichever incidents track the matching attacker.
func (m *Manager) Subscriber() engine.Subscriber {
	return func(_, execCode, ownsMachine, goalReached []engine.Update) {
		m.mu.RLock()
		incidents := make([]*Incident, 0, len(m.cases))
		for _, inc := range m.cases {
			incidents = append(incidents, inc)
		}
		m.mu.RUnlock()

		for _, inc := range incidents {
			inc.observe(execCode, ownsMachine, goalReached)
		}
	}
}

func (inc *Incident) observe(execCode, ownsMachine, goalReached []engine.Update) {
	changed := false
	for _, u := range execCode {
		ec, ok := u.Record.(schema.ExecCode)
		if !ok || ec.AttackerID != inc.AttackerID {
			continue
		}
		eventType, desc := "exec", "gained "+ec.Privilege.String()+" execution on "+ec.Host
		if u.Diff < 0 {
			eventType, desc = "retracted", "lost execution on "+ec.Host
			delete(inc.compromised, ec.Host)
		} else {
			inc.compromised[ec.Host] = true
		}
		inc.appendEvent(u.Timestamp.String(), eventType, desc, ec.Host, ec.Privilege.String())
		changed = true
	}
	for _, u := range ownsMachine {
		om, ok := u.Record.(schema.OwnsMachine)
		if !ok || om.AttackerID != inc.AttackerID {
			continue
		}
		eventType, desc := "owns", "now owns "+om.Host
		if u.Diff < 0 {
			eventType, desc = "retracted", "no longer owns "+om.Host
		}
		inc.appendEvent(u.Timestamp.String(), eventType, desc, om.Host, "root")
		changed = true
	}
	for _, u := range goalReached {
		gr, ok := u.Record.(schema.GoalReached)
		if !ok || gr.AttackerID != inc.AttackerID {
			continue
		}
		eventType, desc := "goal_reached", "GOAL COMPROMISED: "+gr.Target
		if u.Diff < 0 {
			eventType, desc = "retracted", "goal no longer reached: "+gr.Target
		} else {
			inc.Status = "resolved"
		}
		inc.appendEvent(u.Timestamp.String(), eventType, desc, gr.Target, "")
		changed = true
	}
	if changed {
		inc.UpdatedAt = time.Now()
	}
}

func (inc *Incident) appendEvent(ts, eventType, description, host, privilege string) {
	inc.Timeline = append(inc.Timeline, TimelineEvent{
		Timestamp:   ts,
		EventType:   eventType,
		Description: description,
		Host:        host,
		Privilege:   privilege,
	})
}

// TagHost labels a host the incident has touched.
func (inc *Incident) TagHost(host, label, role, notes, taggedBy string) {
	tag := HostTag{Host: host, Label: label, Role: role, Notes: notes, TaggedAt: time.Now(), TaggedBy: taggedBy}
	for i, existing := range inc.HostTags {
		if existing.Host == host {
			inc.HostTags[i] = tag
			inc.UpdatedAt = time.Now()
			return
		}
	}
	inc.HostTags = append(inc.HostTags, tag)
	inc.UpdatedAt = time.Now()
}

// CompromisedHosts returns every host the attacker currently has
// (unretracted) execution on.
func (inc *Incident) CompromisedHosts() []string {
	hosts := make([]string, 0, len(inc.compromised))
	for h := range inc.compromised {
		hosts = append(hosts, h)
	}
	return hosts
}

// GoalsRemaining reports which goal hosts the attacker has not (yet,
// or any longer) compromised.
func (inc *Incident) GoalsRemaining() []string {
	var remaining []string
	for _, g := range inc.GoalHosts {
		if !inc.compromised[g] {
			remaining = append(remaining, g)
		}
	}
	return remaining
}

// SetStatus updates the incident's status.
func (inc *Incident) SetStatus(status string) {
	inc.Status = status
	inc.UpdatedAt = time.Now()
}
