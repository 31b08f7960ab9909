package models

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// Source identifies which of the three polled categories an item belongs to.
type Source string

const (
	SourceLegacy     Source = "legacy"
	SourceProduction Source = "production"
	SourceCompany    Source = "company"
)

// FansOut reports whether a successful publish from this source triggers
// engagement and cross-post rules. Only authored items do; the legacy flow
// is deprecated and stays excluded.
func (s Source) FansOut() bool {
	return s == SourceProduction
}

type ScheduledItemStatus string

const (
	ScheduledItemPending    ScheduledItemStatus = "pending"
	ScheduledItemProcessing ScheduledItemStatus = "processing"
	ScheduledItemPublished  ScheduledItemStatus = "published"
	ScheduledItemFailed     ScheduledItemStatus = "failed"
)

type AuthoredItemStatus string

const (
	AuthoredItemDraft      AuthoredItemStatus = "draft"
	AuthoredItemValidated  AuthoredItemStatus = "validated"
	AuthoredItemScheduled  AuthoredItemStatus = "scheduled"
	AuthoredItemPublishing AuthoredItemStatus = "publishing"
	AuthoredItemPublished  AuthoredItemStatus = "published"
)

type CrossPostJobStatus string

const (
	CrossPostPending    CrossPostJobStatus = "pending"
	CrossPostPublishing CrossPostJobStatus = "publishing"
	CrossPostPublished  CrossPostJobStatus = "published"
	CrossPostFailed     CrossPostJobStatus = "failed"
)

type AccountStatus string

const (
	AccountOK           AccountStatus = "OK"
	AccountCredentials  AccountStatus = "CREDENTIALS"
	AccountDisconnected AccountStatus = "DISCONNECTED"
	AccountError        AccountStatus = "ERROR"
	AccountPending      AccountStatus = "PENDING"
)

type transitionTable[S ~string] map[S][]S

func (t transitionTable[S]) allows(from, to S) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (t transitionTable[S]) check(from, to S) error {
	if !t.allows(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

var scheduledItemTransitions = transitionTable[ScheduledItemStatus]{
	ScheduledItemPending:    {ScheduledItemProcessing},
	ScheduledItemProcessing: {ScheduledItemPublished, ScheduledItemFailed},
}

var authoredItemTransitions = transitionTable[AuthoredItemStatus]{
	AuthoredItemScheduled:  {AuthoredItemPublishing},
	AuthoredItemPublishing: {AuthoredItemPublished, AuthoredItemValidated},
}

// Immediate cross-posts are inserted already terminal and never pass
// through this table.
var crossPostTransitions = transitionTable[CrossPostJobStatus]{
	CrossPostPending:    {CrossPostPublishing, CrossPostFailed},
	CrossPostPublishing: {CrossPostPublished, CrossPostFailed},
}

func (s ScheduledItemStatus) CanTransitionTo(to ScheduledItemStatus) bool {
	return scheduledItemTransitions.allows(s, to)
}

func (s ScheduledItemStatus) ValidateTransition(to ScheduledItemStatus) error {
	return scheduledItemTransitions.check(s, to)
}

func (s ScheduledItemStatus) IsTerminal() bool {
	return s == ScheduledItemPublished || s == ScheduledItemFailed
}

func (s AuthoredItemStatus) CanTransitionTo(to AuthoredItemStatus) bool {
	return authoredItemTransitions.allows(s, to)
}

func (s AuthoredItemStatus) ValidateTransition(to AuthoredItemStatus) error {
	return authoredItemTransitions.check(s, to)
}

func (s CrossPostJobStatus) CanTransitionTo(to CrossPostJobStatus) bool {
	return crossPostTransitions.allows(s, to)
}

func (s CrossPostJobStatus) ValidateTransition(to CrossPostJobStatus) error {
	return crossPostTransitions.check(s, to)
}

func (s CrossPostJobStatus) IsTerminal() bool {
	return s == CrossPostPublished || s == CrossPostFailed
}
