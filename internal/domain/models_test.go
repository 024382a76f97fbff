package domain

import "testing"

func TestInterviewStatus_Valid(t *testing.T) {
	for _, s := range []InterviewStatus{StatusNotStarted, StatusStarted, StatusFinished} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []InterviewStatus{"", "paused", "NOT_STARTED", "done"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestMessageRole_Valid(t *testing.T) {
	for _, r := range []MessageRole{RoleAIHR, RoleCandidate, RoleRecruiter} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	for _, r := range []MessageRole{"", "manager", "AI_HR", "assistant"} {
		if r.Valid() {
			t.Errorf("%q should be invalid", r)
		}
	}
}

func TestMessageRole_DisplayName(t *testing.T) {
	cases := map[MessageRole]string{
		RoleAIHR:      "AI HR",
		RoleCandidate: "CANDIDATE",
		RoleRecruiter: "RECRUITER",
		// Unknown roles fall back to the raw value.
		MessageRole("observer"): "observer",
	}
	for role, want := range cases {
		if got := role.DisplayName(); got != want {
			t.Errorf("DisplayName(%q) = %q; want %q", role, got, want)
		}
	}
}

func TestTableNames(t *testing.T) {
	if got := (Interview{}).TableName(); got != "interviews" {
		t.Errorf("Interview table = %q", got)
	}
	if got := (ChatMessage{}).TableName(); got != "chat_messages" {
		t.Errorf("ChatMessage table = %q", got)
	}
	if got := (Idempotency{}).TableName(); got != "idempotency" {
		t.Errorf("Idempotency table = %q", got)
	}
}
