package contacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `Name,Phone,City
Asha,+91 98765 43210,Pune
Ravi, 91-91234-56789 ,Delhi
,,
Duplicate,919876543210,Mumbai
NoPhone,,Goa
`

func TestParse(t *testing.T) {
	dir, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, 2, dir.Len())
	require.Equal(t, []Contact{
		{Phone: "919876543210", Name: "Asha"},
		{Phone: "919123456789", Name: "Ravi"},
	}, dir.Contacts())

	name, ok := dir.Name("919876543210@c.us")
	require.True(t, ok)
	require.Equal(t, "Asha", name)

	require.True(t, dir.Allowed("919123456789@s.whatsapp.net"))
	require.True(t, dir.Allowed("919123456789:7@s.whatsapp.net"))
	require.False(t, dir.Allowed("15550001111@c.us"))
}

func TestParse_HeaderErrors(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	require.ErrorContains(t, err, "empty file")

	_, err = Parse(strings.NewReader("mobile,name\n123,x\n"))
	require.ErrorContains(t, err, "phone and name")
}

func TestParse_ByteOrderMark(t *testing.T) {
	dir, err := Parse(strings.NewReader("\ufeffphone,name\n123,Bob\n"))
	require.NoError(t, err)
	require.True(t, dir.Allowed("123"))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	dir, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, dir.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestNilDirectory(t *testing.T) {
	var dir *Directory
	require.False(t, dir.Allowed("1"))
	_, ok := dir.Name("1")
	require.False(t, ok)
	require.Zero(t, dir.Len())
	require.Nil(t, dir.Contacts())
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"+91 98765 43210":                "919876543210",
		"919876543210@c.us":              "919876543210",
		"919876543210:12@s.whatsapp.net": "919876543210",
		"  ":                             "",
		"status@broadcast":               "",
	}
	for in, want := range cases {
		require.Equal(t, want, Normalize(in), "input=%q", in)
	}
}

func TestIsGreetingOnly(t *testing.T) {
	for _, in := range []string{"hi", "Hello there!", "Namaste 🙏", "good  morning team", "hey, hello", "Good evening KartavyaAI", "hii"} {
		require.True(t, IsGreetingOnly(in), "input=%q", in)
	}
	for _, in := range []string{
		"",
		"there",
		"Hi, what does a chatbot integration cost?",
		"hello can you build a website",
		"good work",
		"good morning, need help with pricing",
		"this is a test",
		"which plan?",
		"shell script",
	} {
		require.False(t, IsGreetingOnly(in), "input=%q", in)
	}
}

func TestGreeting(t *testing.T) {
	require.Equal(t, "👋 Hello Asha! Welcome to *KartavyaAI*. How can we help you today?", Greeting(" Asha "))
	require.NotContains(t, Greeting(""), "  ")
}
