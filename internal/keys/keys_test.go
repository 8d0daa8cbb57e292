package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/help"
	"github.com/stretchr/testify/assert"
)

var _ help.KeyMap = (*KeyMap)(nil)

func TestSectionsCoverFullHelp(t *testing.T) {
	k := DefaultKeyMap()
	full := k.FullHelp()
	sections := k.Sections()
	assert.Len(t, full, len(sections))
	for i, s := range sections {
		assert.NotEmpty(t, s.Title)
		assert.Len(t, full[i], len(s.Bindings))
	}
}

func TestEveryBindingHasHelp(t *testing.T) {
	for _, s := range DefaultKeyMap().Sections() {
		for _, b := range s.Bindings {
			assert.NotEmpty(t, b.Keys(), s.Title)
			assert.NotEmpty(t, b.Help().Desc, s.Title)
		}
	}
}
