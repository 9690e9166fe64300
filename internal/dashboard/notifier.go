package dashboard

import (
	"encoding/json"
	"time"

	"github.com/edgeboard/edgeboard/internal/schema"
	"github.com/edgeboard/edgeboard/internal/store"
)

// notifier bridges store change notifications to dashboard broadcasts.
// It implements store.Listener.
type notifier struct {
	server *Server
}

func newNotifier(server *Server) *notifier {
	return &notifier{server: server}
}

// SetupUpdateData describes a setup change for the page.
type SetupUpdateData struct {
	Action  string       `json:"action"`
	SetupID string       `json:"setup_id"`
	Setup   schema.Setup `json:"setup"`
}

// RuleUpdateData describes a rule change for the page.
type RuleUpdateData struct {
	Action string      `json:"action"`
	RuleID string      `json:"rule_id"`
	Rule   schema.Rule `json:"rule"`
}

// MentalUpdateData describes a mental-state change for the page.
type MentalUpdateData struct {
	State     schema.MentalState `json:"state"`
	Readiness int                `json:"readiness"`
}

// OnSetupChange broadcasts a setup_update followed by refreshed stats.
func (n *notifier) OnSetupChange(action store.Action, setup schema.Setup) {
	n.server.logger.Printf("Setup %s: %s (%s)", action, setup.ID, setup.Name)
	n.publish(MessageTypeSetupUpdate, SetupUpdateData{
		Action:  string(action),
		SetupID: setup.ID,
		Setup:   setup,
	})
	n.publish(MessageTypeStats, n.server.stats())
}

// OnRuleChange broadcasts a rule_update followed by refreshed stats.
func (n *notifier) OnRuleChange(action store.Action, rule schema.Rule) {
	n.server.logger.Printf("Rule %s: %s (%s)", action, rule.ID, rule.Category)
	n.publish(MessageTypeRuleUpdate, RuleUpdateData{
		Action: string(action),
		RuleID: rule.ID,
		Rule:   rule,
	})
	n.publish(MessageTypeStats, n.server.stats())
}

// OnMentalChange broadcasts the new snapshot and readiness score.
func (n *notifier) OnMentalChange(state schema.MentalState) {
	n.server.logger.Printf("Mental state updated, readiness %d%%", state.Score())
	n.publish(MessageTypeMentalUpdate, MentalUpdateData{
		State:     state,
		Readiness: state.Score(),
	})
	n.publish(MessageTypeStats, n.server.stats())
}

func (n *notifier) publish(typ MessageType, data interface{}) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		n.server.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	n.server.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}
