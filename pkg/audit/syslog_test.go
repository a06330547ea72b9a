package audit

import (
	"bytes"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)
	logger.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }

	logger.Log(Entry{
		Action:         ActionView,
		ActorID:        "u-1",
		ActorName:      "alice",
		CredentialID:   "c-1",
		CredentialName: "prod db",
		Change:         Scalar{Text: "viewed credential"},
		SourceAddress:  "192.168.1.1",
	})

	output := buf.String()

	// <PRI> = facility 10 * 8 + severity 6
	if !strings.HasPrefix(output, "<86>1 2024-03-01T12:30:00.000Z ") {
		t.Errorf("unexpected header: %q", output)
	}
	if !strings.Contains(output, " credvault ") {
		t.Error("Expected app name 'credvault' in output")
	}
	if !strings.Contains(output, " view [") {
		t.Error("Expected message ID 'view' in output")
	}
	if !strings.Contains(output, `[client@32473 ip="192.168.1.1"]`) {
		t.Error("Expected client IP in output")
	}
	if !strings.Contains(output, `[credential@32473 id="c-1" name="prod db"]`) {
		t.Error("Expected credential in output")
	}
	if !strings.HasSuffix(output, "alice viewed credential prod db: viewed credential\n") {
		t.Errorf("unexpected message: %q", output)
	}
}

func TestStructuredDataIsSorted(t *testing.T) {
	sd := map[string]map[string]string{
		"b@1": {"z": "1", "a": "2"},
		"a@1": {"k": "v"},
	}
	got := formatStructuredData(sd)
	want := `[a@1 k="v"][b@1 a="2" z="1"]`
	if got != want {
		t.Errorf("formatStructuredData() = %q, want %q", got, want)
	}
	if formatStructuredData(nil) != "" {
		t.Error("expected empty structured data for nil map")
	}
}

func TestEscapeSDValue(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"simple", `"simple"`},
		{`with"quote`, `"with\"quote"`},
		{`with\backslash`, `"with\\backslash"`},
		{`with]bracket`, `"with\]bracket"`},
	}

	for _, tt := range tests {
		if got := escapeSDValue(tt.input); got != tt.want {
			t.Errorf("escapeSDValue(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEntryEvent(t *testing.T) {
	tests := []struct {
		name      string
		entry     Entry
		wantMsg   string
		wantSev   Severity
		wantMsgID string
	}{
		{
			name:      "create",
			entry:     Entry{Action: ActionCreate, ActorName: "bob", CredentialName: "github"},
			wantMsg:   "bob created credential github",
			wantSev:   SeverityInfo,
			wantMsgID: "create",
		},
		{
			name:      "delete falls back to actor id",
			entry:     Entry{Action: ActionDelete, ActorID: "u-9", CredentialName: "github"},
			wantMsg:   "u-9 deleted credential github",
			wantSev:   SeverityNotice,
			wantMsgID: "delete",
		},
		{
			name:      "policy load without actor",
			entry:     Entry{Action: ActionPolicyLoad, Change: Scalar{Text: "3 users"}},
			wantMsg:   "system loaded access policy: 3 users",
			wantSev:   SeverityNotice,
			wantMsgID: "policy_load",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Message(); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
			if tt.entry.Severity() != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", tt.entry.Severity(), tt.wantSev)
			}
			if tt.entry.Facility() != FacilityAuthPriv {
				t.Errorf("Facility() = %v, want %v", tt.entry.Facility(), FacilityAuthPriv)
			}
			if tt.entry.MessageID() != tt.wantMsgID {
				t.Errorf("MessageID() = %v, want %v", tt.entry.MessageID(), tt.wantMsgID)
			}
		})
	}
}

func TestEntryStructuredData(t *testing.T) {
	sd := Entry{
		Action:        ActionUpdate,
		ActorID:       "u-1",
		SourceAddress: "10.0.0.1",
		Change:        Paired{},
	}.StructuredData()

	if sd[SDIDAction]["operation"] != "UPDATE" {
		t.Errorf("operation = %q", sd[SDIDAction]["operation"])
	}
	if _, ok := sd[SDIDSubject]; ok {
		t.Error("expected no credential element without a credential")
	}
	if sd[SDIDChange]["kind"] != KindPaired {
		t.Errorf("change kind = %q", sd[SDIDChange]["kind"])
	}
}

func TestLoggerLineShape(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)
	logger.Log(Entry{Action: ActionShare, ActorID: "u-1"})

	pattern := regexp.MustCompile(`^<86>1 \S+ \S+ credvault \d+ share \[.*\] u-1 shared\n$`)
	if !pattern.MatchString(buf.String()) {
		t.Errorf("line does not match RFC5424 shape: %q", buf.String())
	}
}
