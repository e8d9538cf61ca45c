package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	refused := &url.Error{Op: "Post", URL: "http://127.0.0.1:8000/query", Err: &net.OpError{
		Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}}

	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "connection refused", err: refused, want: ErrUnavailable},
		{name: "context deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: ErrTimeout},
		{name: "net timeout", err: &url.Error{Op: "Get", URL: "x", Err: timeoutErr{}}, want: ErrTimeout},
		{name: "http 429", err: &HTTPStatusError{StatusCode: http.StatusTooManyRequests}, want: ErrUnavailable},
		{name: "http 401", err: &HTTPStatusError{StatusCode: http.StatusUnauthorized}, want: ErrUnavailable},
		{name: "http 503", err: &HTTPStatusError{StatusCode: http.StatusServiceUnavailable}, want: ErrUnavailable},
		{name: "http 504", err: &HTTPStatusError{StatusCode: http.StatusGatewayTimeout}, want: ErrTimeout},
		{name: "grpc quota", err: status.Error(codes.ResourceExhausted, "quota"), want: ErrUnavailable},
		{name: "grpc auth", err: status.Error(codes.Unauthenticated, "bad key"), want: ErrUnavailable},
		{name: "grpc deadline", err: status.Error(codes.DeadlineExceeded, "slow"), want: ErrTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			require.ErrorIs(t, got, tc.want)
			require.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassify_Unrecognised(t *testing.T) {
	err := errors.New("boom")
	require.Same(t, err, Classify(err))

	bad := &HTTPStatusError{StatusCode: http.StatusBadRequest}
	got := Classify(bad)
	require.False(t, errors.Is(got, ErrUnavailable))
	require.False(t, errors.Is(got, ErrTimeout))

	require.NoError(t, Classify(nil))
}

func TestClassify_AlreadyClassified(t *testing.T) {
	err := fmt.Errorf("rest: %w", ErrMalformed)
	require.Same(t, err, Classify(err))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("", "What do you build?", []string{"user: hi", "bot: hello"})
	require.Contains(t, p, DefaultPersona)
	require.Contains(t, p, "Context: user: hi\nbot: hello")
	require.Contains(t, p, `User message: "What do you build?"`)
	require.Contains(t, p, `"reply": "your response"`)
}

func TestBuildPrompt_CustomPersona(t *testing.T) {
	p := BuildPrompt("You are a concierge.", "hello", nil)
	require.Contains(t, p, "You are a concierge.")
	require.NotContains(t, p, "KartavyaBot")
}

func TestBuildVoicePrompt(t *testing.T) {
	require.Equal(t, VoicePrompt, BuildVoicePrompt(nil))
	require.Contains(t, BuildVoicePrompt([]string{"earlier turn"}), "Context: earlier turn")
}
