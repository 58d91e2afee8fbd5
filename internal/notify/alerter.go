package notify

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/estateops/estatecrm/internal/db"
)

// Alerter drives the reminder jobs: appointment alerts inside the lead
// window and the daily to-do digest.
type Alerter struct {
	db       *db.DB
	notifier *Notifier
	lead     time.Duration
	now      func() time.Time
}

// NewAlerter creates an Alerter with the given lead window.
func NewAlerter(database *db.DB, notifier *Notifier, lead time.Duration) *Alerter {
	return &Alerter{
		db:       database,
		notifier: notifier,
		lead:     lead,
		now:      time.Now,
	}
}

// RunAppointmentAlerts sends a reminder for every appointment starting
// inside the lead window that has not been alerted yet. Each alerted
// appointment is stamped so it is never alerted twice. Returns the
// number of reminders sent.
func (a *Alerter) RunAppointmentAlerts() (int, error) {
	if !a.notifier.IsEnabled() {
		return 0, nil
	}

	now := a.now()
	appts, err := a.db.ListUpcomingUnalerted(now, now.Add(a.lead))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, appt := range appts {
		agent, err := a.loadAgent(appt.AgentID)
		if err != nil {
			return sent, err
		}
		if agent == nil {
			continue // nobody to notify
		}
		if err := a.notifier.SendAppointmentAlert(agent, appt); err != nil {
			log.Printf("Alert failed for appointment %s: %v", appt.ID, err)
			continue
		}
		if err := a.db.MarkAlerted(appt.ID, now); err != nil {
			return sent, fmt.Errorf("failed to mark appointment %s alerted: %w", appt.ID, err)
		}
		sent++
	}
	return sent, nil
}

// RunTodoDigest emails each agent their open to-do items due within the
// next 24 hours. Returns the number of digests sent.
func (a *Alerter) RunTodoDigest() (int, error) {
	if !a.notifier.IsEnabled() {
		return 0, nil
	}

	todos, err := a.db.ListOpenTodosDueBy(a.now().Add(24 * time.Hour))
	if err != nil {
		return 0, err
	}

	byAgent := make(map[string][]*db.TodoItem)
	for _, todo := range todos {
		byAgent[todo.AgentID] = append(byAgent[todo.AgentID], todo)
	}

	sent := 0
	for agentID, items := range byAgent {
		agent, err := a.db.GetAgentByID(agentID)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			return sent, err
		}
		if err := a.notifier.SendTodoDigest(agent, items); err != nil {
			log.Printf("To-do digest failed for agent %s: %v", agent.Email, err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (a *Alerter) loadAgent(id *string) (*db.Agent, error) {
	if id == nil {
		return nil, nil
	}
	agent, err := a.db.GetAgentByID(*id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return agent, err
}
