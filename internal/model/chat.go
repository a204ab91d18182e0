// Package model defines the chat, message and thinking data types.
package model

import (
	"sort"
	"time"
)

// DefaultChatTitle is given to chats created without a title.
const DefaultChatTitle = "New Chat"

// Chat is the summary record of a conversation.
type Chat struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastActivity time.Time `json:"lastActivity"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	ContextIDs   []string  `json:"contextIds,omitempty"`
	UnreadCount  int       `json:"unreadCount"`
	IsArchived   bool      `json:"isArchived"`
	Tags         []string  `json:"tags,omitempty"`
}

// HasTag reports whether the chat carries tag. Tags are case-sensitive.
func (c Chat) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasContext reports whether id is attached to the chat.
func (c Chat) HasContext(id string) bool {
	for _, x := range c.ContextIDs {
		if x == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the chat.
func (c Chat) Clone() Chat {
	if c.LastMessage != nil {
		m := c.LastMessage.Clone()
		c.LastMessage = &m
	}
	c.ContextIDs = append([]string(nil), c.ContextIDs...)
	c.Tags = append([]string(nil), c.Tags...)
	return c
}

// SortChats orders chats by last activity, newest first.
func SortChats(chats []Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].LastActivity.After(chats[j].LastActivity)
	})
}

// Context is reference material a user can attach to a chat turn.
type Context struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Type        string   `json:"type"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category"`
}
