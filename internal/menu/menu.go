// Package menu is the static keyword responder used when the bot runs
// without a model.
package menu

import "strings"

// Fallback is sent when no entry matches.
const Fallback = "🤖 I'm not sure how to respond to that. Type *menu* to see available options."

const (
	welcome = "👋 Hello! This is *KartavyaAI*, your AI & web solutions partner.\n\n" +
		"Type *menu* to explore what we offer."

	services = "🛠️ *KartavyaAI Services:*\n" +
		"1. Custom AI Solutions 🤖\n" +
		"2. Website & Web App Development 🌐\n" +
		"3. Chatbot Integration 💬\n" +
		"4. Automation & Workflow Tools ⚙️\n" +
		"5. API & Backend Services 🔌\n\n" +
		"Reply with a number (e.g., 1) to learn more."
)

var entries = map[string]string{
	"!ping": "pong 🏓",
	"hi":    welcome,
	"hello": welcome,
	"help":  services,
	"menu":  services,
	"1": "🤖 *Custom AI Solutions*\nWe build intelligent tools tailored to your business — " +
		"from analytics to recommendation engines and process automation.",
	"2": "🌐 *Web & App Development*\nWe design and develop responsive websites, dashboards, " +
		"and web apps with modern tech stacks like React, Next.js, and Node.js.",
	"3": "💬 *Chatbot Integration*\nWe create smart WhatsApp, Telegram, or website chatbots " +
		"using GPT, LangChain, Dialogflow, and more.",
	"4": "⚙️ *Automation Tools*\nWe automate repetitive business tasks using custom scripts, " +
		"Zapier, or AI-driven workflow builders.",
	"5": "🔌 *API & Backend Services*\nSecure and scalable APIs for mobile/web apps, integrated " +
		"with databases, third-party services, and admin tools.",
}

// Lookup returns the entry for text. Matching is exact after lowercasing and
// trimming.
func Lookup(text string) (string, bool) {
	reply, ok := entries[strings.ToLower(strings.TrimSpace(text))]
	return reply, ok
}

// Respond returns the entry for text, or Fallback.
func Respond(text string) string {
	if reply, ok := Lookup(text); ok {
		return reply
	}
	return Fallback
}
