package models

// Tab is a sidebar section.
type Tab string

// Sidebar tabs.
const (
	TabChat   Tab = "chat"
	TabMask   Tab = "mask"
	TabConfig Tab = "config"
)

// Valid reports whether t is a known tab.
func (t Tab) Valid() bool {
	switch t {
	case TabChat, TabMask, TabConfig:
		return true
	}
	return false
}

// SidebarConfig is the persisted sidebar preference.
type SidebarConfig struct {
	ActiveTab Tab `json:"activeTab"`
}

// DefaultSidebarConfig returns the preference used before anything is stored.
func DefaultSidebarConfig() SidebarConfig {
	return SidebarConfig{ActiveTab: TabChat}
}
