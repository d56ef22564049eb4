package bot

import (
	"fmt"
	"strings"
	"testing"
)

func TestClampReplyShortMessage(t *testing.T) {
	msg := "History for <@u1>:\n• [2026-01-02] moved to Chalk Team"
	if got := clampReply(msg); got != msg {
		t.Errorf("short reply was altered: %q", got)
	}
}

func TestClampReplyLongMessage(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("History for <@u1>:\n")
	for n := 0; sb.Len() <= maxReplyLen; n++ {
		fmt.Fprintf(&sb, "• [2026-01-02] misconduct #%d against <@u2>: griefing the motor pool\n", n)
	}

	got := clampReply(sb.String())
	if len(got) > maxReplyLen {
		t.Errorf("clamped reply is %d chars, limit is %d", len(got), maxReplyLen)
	}
	if !strings.HasSuffix(got, "… (truncated)") {
		t.Errorf("clamped reply missing truncation marker: %q", got[len(got)-40:])
	}
	// the cut lands on a line boundary, not mid-entry
	body := strings.TrimSuffix(got, "\n… (truncated)")
	if !strings.HasSuffix(body, "griefing the motor pool") {
		t.Errorf("reply cut mid-line: %q", body[len(body)-40:])
	}
}
