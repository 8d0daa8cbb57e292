package detail

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memakingbeats/sentient-inbox-main/internal/keys"
	"github.com/memakingbeats/sentient-inbox-main/internal/model"
)

func openEmail() Model {
	m := New(keys.DefaultKeyMap(), 100, 40)
	e := model.Email{
		ID:      "m1",
		Subject: "Invoice 42",
		Sender:  "Billing <billing@example.com>",
		Body:    "Please pay by Friday.",
		Labels:  []string{"INBOX", "UNREAD"},
	}
	e.ApplyLabels()
	m.SetEmail(e)
	return m
}

func keyPress(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestRendersEmail(t *testing.T) {
	m := openEmail()
	view := m.View()
	assert.Contains(t, view, "Invoice 42")
	assert.Contains(t, view, "Please pay by Friday.")
	assert.Contains(t, view, "UNREAD")
}

func TestAnalyzeFlow(t *testing.T) {
	m := openEmail()

	_, cmd := m.Update(keyPress("a"))
	require.NotNil(t, cmd)
	assert.Equal(t, ActionMsg{Action: ActionAnalyze, EmailID: "m1"}, cmd())

	require.NotNil(t, m.StartAnalysis())
	assert.Contains(t, m.View(), "Analyzing message")

	_, cmd = m.Update(keyPress("a"))
	assert.Nil(t, cmd, "no second request while loading")

	m, _ = m.Update(AnalysisLoadedMsg{EmailID: "other"})
	assert.True(t, m.analysisLoading, "results for another message are ignored")

	m, _ = m.Update(AnalysisLoadedMsg{EmailID: "m1", Analysis: &model.Analysis{
		Summary:            "Invoice due Friday.",
		Sentiment:          "neutral",
		Urgency:            "high",
		Category:           "finance",
		RecommendedActions: []string{"Pay the invoice"},
	}})
	view := m.View()
	assert.Contains(t, view, "AI Analysis")
	assert.Contains(t, view, "Invoice due Friday.")
	assert.Contains(t, view, "Pay the invoice")
}

func TestAnalysisError(t *testing.T) {
	m := openEmail()
	m.StartAnalysis()
	m, _ = m.Update(AnalysisLoadedMsg{EmailID: "m1", Err: errors.New("backend down")})
	assert.Contains(t, m.View(), "backend down")
}

func TestMarkRead(t *testing.T) {
	m := openEmail()

	_, cmd := m.Update(keyPress("m"))
	require.NotNil(t, cmd)
	assert.Equal(t, ActionMsg{Action: ActionMarkRead, EmailID: "m1"}, cmd())

	m.MarkRead("m1")
	assert.NotContains(t, m.View(), "UNREAD")

	_, cmd = m.Update(keyPress("m"))
	assert.Nil(t, cmd)
}

func TestBack(t *testing.T) {
	m := openEmail()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}
