// Package conversation holds the internal message model shared by every
// backend adapter and the history normalization applied before a request is
// translated.
//
// Invariants:
// - Normalize never mutates its input and never grows the history.
// - After Normalize, no two adjacent entries share the user or assistant role.
//
// Usage:
//
//	msgs := conversation.Normalize([]conversation.Message{
//		{Role: conversation.RoleUser, Content: "hi"},
//		{Role: conversation.RoleUser, Content: "are you there?"},
//	})
//	_ = msgs // [user:"hi\n\nare you there?"]
package conversation
