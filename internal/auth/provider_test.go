package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/contextutil"
)

func TestStatic(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    string
		wantErr error
	}{
		{name: "configured key", key: "secret", want: "secret"},
		{name: "empty key", key: "", wantErr: ErrAuthFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Static(tt.key).Token(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Token() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Token() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithDummyFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := contextutil.WithLogger(context.Background(), logger)

	got, err := WithDummyFallback(Static("")).Token(ctx)
	if err != nil {
		t.Fatalf("Token() error = %v, want nil", err)
	}
	if got != DummyKey {
		t.Errorf("Token() = %q, want %q", got, DummyKey)
	}
	if !strings.Contains(buf.String(), "using dummy key") {
		t.Errorf("expected a warning log, got %q", buf.String())
	}

	got, err = WithDummyFallback(Static("real")).Token(ctx)
	if err != nil || got != "real" {
		t.Errorf("Token() = %q, %v, want real, nil", got, err)
	}
}
