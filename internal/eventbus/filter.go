package eventbus

// Filter is a predicate over event payload fields. A subscription delivers
// only events for which Filter returns true.
type Filter func(Event) bool

// AnyFamily returns a Filter matching every event in the given family.
func AnyFamily(f Family) Filter {
	return func(e Event) bool { return e.Family() == f }
}

// TaskEventsForAgentOrPersona matches task events that a long-polling agent
// should wake up on: events for tasks already assigned to agentID, plus
// events for unassigned tasks whose personaId is either empty or equal to
// personaID. This mirrors the eligibility rule used by claimNext (spec.md
// §4.5) so a waiter never misses a task it could go on to claim.
func TaskEventsForAgentOrPersona(agentID, personaID string) Filter {
	return func(e Event) bool {
		te, ok := e.(TaskEvent)
		if !ok {
			return false
		}
		if te.AgentID == agentID && agentID != "" {
			return true
		}
		if te.AgentID != "" {
			return false // assigned to someone else
		}
		return te.PersonaID == "" || te.PersonaID == personaID
	}
}

// AgentEventsFor matches agent lifecycle events for a specific agent.
func AgentEventsFor(agentID string) Filter {
	return func(e Event) bool {
		ae, ok := e.(AgentEvent)
		return ok && ae.AgentID == agentID
	}
}

// MemoryEventsFor matches memory lifecycle events for a specific
// (namespace, key) pair.
func MemoryEventsFor(namespace, key string) Filter {
	return func(e Event) bool {
		me, ok := e.(MemoryEvent)
		return ok && me.Namespace == namespace && me.Key == key
	}
}
