package broadcast

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kartavyaai/kartavyabot/internal/contacts"
)

type sent struct{ to, text string }

type fakeSender struct {
	sent   []sent
	failOn map[string]bool
	after  func(n int)
}

func (f *fakeSender) SendText(_ context.Context, to, text string) error {
	if f.failOn[to] {
		return errors.New("not on whatsapp")
	}
	f.sent = append(f.sent, sent{to: to, text: text})
	if f.after != nil {
		f.after(len(f.sent))
	}
	return nil
}

func directory(t *testing.T) *contacts.Directory {
	t.Helper()
	dir, err := contacts.Parse(strings.NewReader("phone,name\n111,Asha\n222,\n333,Ravi\n"))
	require.NoError(t, err)
	return dir
}

func TestRun_SendsToEveryContact(t *testing.T) {
	s := &fakeSender{failOn: map[string]bool{"222": true}}
	report, err := Run(context.Background(), directory(t), s, Options{Template: "Hi {name}, welcome!"})
	require.NoError(t, err)

	require.Equal(t, 2, report.Sent)
	require.Equal(t, []string{"222"}, report.Failed)
	require.Equal(t, []sent{
		{to: "111", text: "Hi Asha, welcome!"},
		{to: "333", text: "Hi Ravi, welcome!"},
	}, s.sent)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &fakeSender{after: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	report, err := Run(ctx, directory(t), s, Options{Interval: time.Hour})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, report.Sent)
}

func TestRun_NilSenderAndEmptyDirectory(t *testing.T) {
	_, err := Run(context.Background(), directory(t), nil, Options{})
	require.Error(t, err)

	report, err := Run(context.Background(), nil, &fakeSender{}, Options{})
	require.NoError(t, err)
	require.Zero(t, report.Sent)
}

func TestRender(t *testing.T) {
	require.Equal(t, "Hello Asha", Render("Hello {name}", " Asha "))
	require.Equal(t, "Hello there", Render("Hello {name}", ""))
	require.Contains(t, Render("", "Ravi"), "Hello Ravi!")
}
