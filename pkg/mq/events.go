package mq

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	ChangeEventExchange = "change_events"
	ChangeEventQueue    = "change_events"
)

// ChangeKind 由前后快照是否存在推导
type ChangeKind string

const (
	ChangeCreate    ChangeKind = "create"
	ChangeUpdate    ChangeKind = "update"
	ChangeDelete    ChangeKind = "delete"
	ChangeMalformed ChangeKind = ""
)

// ChangeEvent 一次文档变更, before/after 缺失或为 null 表示文档不存在
type ChangeEvent struct {
	EventID   string          `json:"eventId"`
	Path      string          `json:"path"`
	Before    json.RawMessage `json:"before,omitempty"`
	After     json.RawMessage `json:"after,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Attempt   int             `json:"attempt"`
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func (e *ChangeEvent) HasBefore() bool { return present(e.Before) }
func (e *ChangeEvent) HasAfter() bool  { return present(e.After) }

func (e *ChangeEvent) Kind() ChangeKind {
	switch {
	case !e.HasBefore() && e.HasAfter():
		return ChangeCreate
	case e.HasBefore() && e.HasAfter():
		return ChangeUpdate
	case e.HasBefore() && !e.HasAfter():
		return ChangeDelete
	default:
		return ChangeMalformed
	}
}

// NewChangeEvent 生成事件, 快照为 nil 时对应字段留空
func NewChangeEvent(eventID, path string, before, after interface{}) (*ChangeEvent, error) {
	e := &ChangeEvent{EventID: eventID, Path: path, Timestamp: time.Now().UTC()}
	var err error
	if before != nil {
		if e.Before, err = json.Marshal(before); err != nil {
			return nil, err
		}
	}
	if after != nil {
		if e.After, err = json.Marshal(after); err != nil {
			return nil, err
		}
	}
	return e, nil
}
