package realtime

import (
	"time"

	"github.com/wonny/fundquant/internal/contracts"
)

// EventType tags a message pushed to progress subscribers
type EventType string

const (
	EventProgress EventType = "progress" // 종목 1건 완료
	EventSnapshot EventType = "snapshot" // 접속 직후 마지막 진행 상태
)

// Event is the JSON frame sent over /ws/progress
// ⭐ SSOT: 실시간 진행 메시지 구조
type Event struct {
	Type      EventType          `json:"type"`
	Progress  contracts.Progress `json:"progress"`
	Timestamp time.Time          `json:"timestamp"`
}

// Finished reports whether the event closes its run
func (e Event) Finished() bool {
	return e.Progress.Total > 0 && e.Progress.Done >= e.Progress.Total
}
