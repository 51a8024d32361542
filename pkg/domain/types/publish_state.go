package types

import "fmt"

// PublishState represents the state of a single publish attempt
type PublishState string

const (
	PublishStateDraft            PublishState = "DRAFT"
	PublishStateContainerCreated PublishState = "CONTAINER_CREATED"
	PublishStatePublished        PublishState = "PUBLISHED"
	PublishStateFailed           PublishState = "FAILED"
)

// IsValid checks if the publish state is valid
func (s PublishState) IsValid() bool {
	switch s {
	case PublishStateDraft,
		PublishStateContainerCreated,
		PublishStatePublished,
		PublishStateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible
func (s PublishState) IsTerminal() bool {
	return s == PublishStatePublished || s == PublishStateFailed
}

// CanTransitionTo checks whether moving from s to next is allowed
func (s PublishState) CanTransitionTo(next PublishState) bool {
	switch s {
	case PublishStateDraft:
		return next == PublishStateContainerCreated || next == PublishStatePublished || next == PublishStateFailed
	case PublishStateContainerCreated:
		return next == PublishStatePublished || next == PublishStateFailed
	default:
		return false
	}
}

func (s PublishState) String() string {
	return string(s)
}

// ParsePublishState parses a string into a PublishState
func ParsePublishState(s string) (PublishState, error) {
	state := PublishState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid publish state: %s", s)
	}
	return state, nil
}

// PublishPhase names the protocol step a publish failure happened in
type PublishPhase string

const (
	PublishPhaseContainer PublishPhase = "container"
	PublishPhaseConfirm   PublishPhase = "confirm"
	PublishPhasePost      PublishPhase = "post"
)

func (p PublishPhase) String() string {
	return string(p)
}
