package model

import (
	"time"
)

// InteractionEvent is one logged browsing interaction in a store section.
// Events are immutable once stored.
type InteractionEvent struct {
	ID               string                 `json:"id"`
	StoreID          string                 `json:"store_id"`
	Section          string                 `json:"section"`
	ItemsTouched     []string               `json:"items_touched"`
	TimeSpentSeconds int                    `json:"time_spent_seconds"`
	Demographics     map[string]interface{} `json:"demographics,omitempty"`
	AssociateID      string                 `json:"associate_id,omitempty"`
	Source           *CaptureSource         `json:"source,omitempty"`
	Timestamp        time.Time              `json:"timestamp"`
}

// CaptureSource describes the device that recorded the event
type CaptureSource struct {
	DeviceType     string `json:"device_type,omitempty" bson:"device_type,omitempty"`
	Browser        string `json:"browser,omitempty" bson:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty" bson:"browser_version,omitempty"`
	OS             string `json:"os,omitempty" bson:"os,omitempty"`
}

// Touched reports whether item is in the event's touched list
func (e *InteractionEvent) Touched(item string) bool {
	for _, it := range e.ItemsTouched {
		if it == item {
			return true
		}
	}
	return false
}
