package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/memakingbeats/sentient-inbox-main/internal/log"
	"github.com/memakingbeats/sentient-inbox-main/internal/session"
)

// noticeTTL is how long a notice stays in the status bar.
const noticeTTL = 6 * time.Second

// noticeMsg delivers a session notice to the Bubble Tea runtime.
type noticeMsg session.Notice

// clearNoticeMsg expires the notice with the same sequence number.
type clearNoticeMsg struct {
	seq int
}

// Notices is a channel-backed session.Notifier. Notify never blocks.
type Notices struct {
	ch chan session.Notice
}

// NewNotices creates an empty notice queue.
func NewNotices() *Notices {
	return &Notices{ch: make(chan session.Notice, 16)}
}

// Notify queues n, dropping it when the queue is full.
func (n *Notices) Notify(notice session.Notice) {
	select {
	case n.ch <- notice:
	default:
		log.LogWarnWithFields("app", "notice dropped", map[string]any{"message": notice.Message})
	}
}

// Wait returns a tea.Cmd that delivers the next notice. Call it again after
// each noticeMsg to keep listening.
func (n *Notices) Wait() tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-n.ch)
	}
}

func expireNotice(seq int) tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}
