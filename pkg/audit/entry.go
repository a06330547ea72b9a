package audit

import (
	"fmt"
	"strings"
)

// Entry is one action to record. ActorName is looked up from ActorID when
// left empty. Personal marks events on personal credentials, which the
// audit_personal_credentials setting may exclude.
type Entry struct {
	Action         Action
	ActorID        string
	ActorName      string
	CredentialID   string
	CredentialName string
	Personal       bool
	Change         Change
	SourceAddress  string
}

var verbs = map[Action]string{
	ActionCreate:         "created",
	ActionView:           "viewed",
	ActionUpdate:         "updated",
	ActionDelete:         "deleted",
	ActionShare:          "shared",
	ActionPolicyLoad:     "loaded access policy",
	ActionSettingsUpdate: "updated settings",
}

func (e Entry) MessageID() string {
	return strings.ToLower(e.Action.String())
}

func (e Entry) Message() string {
	actor := e.ActorName
	if actor == "" {
		actor = e.ActorID
	}
	if actor == "" {
		actor = "system"
	}

	msg := fmt.Sprintf("%s %s", actor, verbs[e.Action])
	if e.CredentialName != "" {
		msg += fmt.Sprintf(" credential %s", e.CredentialName)
	}
	if summary := Render(e.Change); summary != "" {
		msg += ": " + summary
	}
	return msg
}

func (e Entry) Severity() Severity {
	switch e.Action {
	case ActionDelete, ActionPolicyLoad, ActionSettingsUpdate:
		return SeverityNotice
	}
	return SeverityInfo
}

func (e Entry) Facility() int {
	return FacilityAuthPriv
}

func (e Entry) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAction: {
			"operation": e.Action.String(),
		},
		SDIDActor: {
			"user": e.ActorID,
		},
		SDIDClient: {
			"ip": e.SourceAddress,
		},
	}
	if e.ActorName != "" {
		sd[SDIDActor]["name"] = e.ActorName
	}
	if e.CredentialID != "" || e.CredentialName != "" {
		sd[SDIDSubject] = map[string]string{
			"id":   e.CredentialID,
			"name": e.CredentialName,
		}
	}
	if e.Change != nil {
		sd[SDIDChange] = map[string]string{"kind": e.Change.Kind()}
	}
	return sd
}
