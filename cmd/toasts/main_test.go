package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/toasts-app/toasts/internal/poller"
)

func TestExitCode(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name       string
		ctx        context.Context
		err        error
		wantCode   int
		wantStderr string
	}{
		{
			name:       "fatal error",
			ctx:        context.Background(),
			err:        &poller.FatalError{Kind: poller.KindAuth, Detail: "Invalid credentials for authentication in GitHub"},
			wantCode:   1,
			wantStderr: "ERROR(toasts) - Invalid credentials for authentication in GitHub\n",
		},
		{
			name:       "wrapped fatal error",
			ctx:        context.Background(),
			err:        fmt.Errorf("run: %w", &poller.FatalError{Kind: poller.KindConfig, Detail: "No clients enabled"}),
			wantCode:   1,
			wantStderr: "ERROR(toasts) - No clients enabled\n",
		},
		{
			name:       "plain error",
			ctx:        context.Background(),
			err:        errors.New("config: read file: permission denied"),
			wantCode:   1,
			wantStderr: "ERROR(toasts) - config: read file: permission denied\n",
		},
		{
			name:     "interrupted",
			ctx:      cancelled,
			err:      context.Canceled,
			wantCode: 0,
		},
		{
			name:     "interrupted during fatal",
			ctx:      cancelled,
			err:      &poller.FatalError{Kind: poller.KindUnclassified, Detail: "boom"},
			wantCode: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if got := exitCode(tc.ctx, &stderr, tc.err); got != tc.wantCode {
				t.Errorf("exitCode = %d, want %d", got, tc.wantCode)
			}
			if stderr.String() != tc.wantStderr {
				t.Errorf("stderr = %q, want %q", stderr.String(), tc.wantStderr)
			}
		})
	}
}

func TestFatal(t *testing.T) {
	var stderr bytes.Buffer
	if code := fatal(&stderr, `Invalid client name "gitlab"`); code != 1 {
		t.Errorf("fatal = %d, want 1", code)
	}
	if want := "ERROR(toasts) - Invalid client name \"gitlab\"\n"; stderr.String() != want {
		t.Errorf("stderr = %q, want %q", stderr.String(), want)
	}
}
