package extract

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestNewCommand_Empty(t *testing.T) {
	if _, err := NewCommand(nil, 0, nil); err == nil {
		t.Error("NewCommand(nil) error = nil, want error")
	}
}

func TestCommand_ExtractText(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	tests := []struct {
		name    string
		argv    []string
		want    string
		wantErr string
	}{
		{
			name: "placeholder substituted and output trimmed",
			argv: []string{"sh", "-c", "echo '  text from {file}  '"},
			want: "text from /tmp/scan.png",
		},
		{
			name:    "non-zero exit",
			argv:    []string{"sh", "-c", "echo unreadable >&2; exit 1"},
			wantErr: "exited with code 1: unreadable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCommand(tt.argv, 5*time.Second, nil)
			if err != nil {
				t.Fatalf("NewCommand() error = %v", err)
			}
			got, err := c.ExtractText(context.Background(), "/tmp/scan.png")
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ExtractText() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractText() = %q, want %q", got, tt.want)
			}
		})
	}
}
