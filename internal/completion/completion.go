// Package completion turns free-form generative model output into a
// structured reply.
//
// Models are asked to answer with a small JSON object carrying "reply" and
// "context" fields, but compliance is not guaranteed. Normalize accepts the
// object inside a ```json fence, as a bare literal, or not at all, and always
// produces a usable Result.
package completion

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// DefaultReply is shown when the model returned a structured payload with an
// empty reply.
const DefaultReply = "I'm here to help you with KartavyaAI services."

// HistorySeparator joins prior turns into the fallback context.
const HistorySeparator = "\n"

var fencedJSON = regexp.MustCompile("(?is)```json(.*?)```")

// Result is the normalized model answer.
type Result struct {
	// Reply is the text sent to the user. Never empty.
	Reply string `json:"reply"`

	// Context summarizes the conversation for the next turn. May be empty.
	Context string `json:"context"`
}

// payload is the structured shape the model is asked to produce. Fields are
// kept raw so a non-string value does not reject the whole object.
type payload struct {
	Reply   json.RawMessage `json:"reply"`
	Context json.RawMessage `json:"context"`
}

// Normalizer converts raw model text into a Result.
// The zero value uses DefaultReply.
type Normalizer struct {
	DefaultReply string
}

// Normalize is shorthand for Normalizer{}.Normalize.
func Normalize(raw string, history []string) Result {
	return Normalizer{}.Normalize(raw, history)
}

// Normalize extracts the reply and context from raw. It never fails: when no
// structured payload can be decoded the whole trimmed text becomes the reply
// and the joined history becomes the context.
func (n Normalizer) Normalize(raw string, history []string) Result {
	text := strings.TrimSpace(raw)
	joined := strings.Join(history, HistorySeparator)

	if p, ok := decode(text); ok {
		res := Result{Reply: p.reply(), Context: p.context()}
		if strings.TrimSpace(res.Reply) == "" {
			res.Reply = n.defaultReply()
		}
		if res.Context == "" {
			res.Context = joined
		}
		return res
	}

	if text == "" {
		text = n.defaultReply()
	}
	return Result{Reply: text, Context: joined}
}

// reply returns the reply field when it is a JSON string.
func (p payload) reply() string {
	var s string
	if err := json.Unmarshal(p.Reply, &s); err != nil {
		return ""
	}
	return s
}

// context returns a string context as is and any other JSON value as its
// compact encoding. Missing and null contexts are empty.
func (p payload) context() string {
	raw := bytes.TrimSpace(p.Context)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	return buf.String()
}

func (n Normalizer) defaultReply() string {
	if strings.TrimSpace(n.DefaultReply) != "" {
		return n.DefaultReply
	}
	return DefaultReply
}

// extract finds the candidate payload: the body of a ```json fence if there is
// one, otherwise everything from the first '{' to the last '}'.
func extract(text string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func decode(text string) (payload, bool) {
	candidate, ok := extract(text)
	if !ok {
		return payload{}, false
	}
	var p payload
	if err := json.Unmarshal([]byte(candidate), &p); err != nil {
		return payload{}, false
	}
	return p, true
}
