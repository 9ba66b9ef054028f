package ui

import "exilence-cli/internal/core/stashtab"

// noticeBoard collects workflow interruptions until Update picks them up.
type noticeBoard struct {
	confirm *stashtab.Row
	alert   string
}

func (b *noticeBoard) ConfirmMapTab(r stashtab.Row) { b.confirm = &r }

func (b *noticeBoard) Alert(msg string) { b.alert = msg }

// take returns and clears the collected notices.
func (b *noticeBoard) take() (*stashtab.Row, string) {
	c, a := b.confirm, b.alert
	b.confirm, b.alert = nil, ""
	return c, a
}
