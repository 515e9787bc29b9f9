package model

import "go-trip-planner/internal/event"

type AuditQuery struct {
	Type    string
	ActorID string
	From    string
	To      string
	Page    int
	Limit   int
}

type AuditListData struct {
	Items []event.Event `json:"items"`
}
