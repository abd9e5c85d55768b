package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mapgame/mapgame/internal/model"
)

func TestLoginPage(t *testing.T) {
	p := MustPages()

	var buf bytes.Buffer
	if err := p.Login(&buf, LoginData{Username: "<alice>", Error: "Invalid username or password"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `action="/admin/login"`) {
		t.Error("form does not post to /admin/login")
	}
	if !strings.Contains(out, "Invalid username or password") {
		t.Error("error message missing")
	}
	if strings.Contains(out, "<alice>") {
		t.Error("username was not escaped")
	}
	if !strings.Contains(out, "Sign in · Interactive Map Admin") {
		t.Error("default title missing")
	}
}

func TestDashboardPage(t *testing.T) {
	p := MustPages()
	last := time.Date(2025, 10, 30, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	err := p.Dashboard(&buf, DashboardData{
		Admin:        &model.Admin{Username: "alice", FullName: "Alice Example", IsSuperAdmin: true, LastLoginAt: &last},
		ObjectCount:  12,
		SessionCount: 2,
	})
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Welcome, Alice Example", "Super admin", "2025-10-30 12:00 UTC", "<td>12</td>", `action="/admin/logout"`} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}
