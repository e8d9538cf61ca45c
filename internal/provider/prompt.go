package provider

import (
	"strings"
)

// DefaultPersona is the system instruction used when none is configured.
const DefaultPersona = "You are *KartavyaBot*, a professional WhatsApp chatbot for KartavyaAI, " +
	"a company that builds AI and web solutions for clients.\n\n" +
	"Reply professionally to the following user message. Do not mention that you're an AI. " +
	"Keep it human, helpful, and concise."

// OutputContract asks the model for the structured payload the completion
// normalizer understands.
const OutputContract = "Respond in this JSON format:\n" +
	"{\n" +
	"  \"reply\": \"your response\",\n" +
	"  \"context\": \"summarized context\"\n" +
	"}"

// VoicePrompt accompanies forwarded voice notes.
const VoicePrompt = "The attached audio is a WhatsApp voice message from a customer of KartavyaAI, " +
	"a company that builds AI and web solutions.\n" +
	"Listen to it and reply to the speaker directly, in the language they used. " +
	"Do not describe the audio and do not mention that you're an AI.\n\n" + OutputContract

// BuildPrompt assembles the full text prompt for a single-shot model call.
func BuildPrompt(persona, message string, history []string) string {
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}
	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n\nContext: ")
	sb.WriteString(strings.Join(history, "\n"))
	sb.WriteString("\nUser message: \"")
	sb.WriteString(message)
	sb.WriteString("\"\n\n")
	sb.WriteString(OutputContract)
	sb.WriteString("\n")
	return sb.String()
}

// BuildVoicePrompt returns the voice instruction with prior turns prepended.
func BuildVoicePrompt(history []string) string {
	if len(history) == 0 {
		return VoicePrompt
	}
	return "Context: " + strings.Join(history, "\n") + "\n\n" + VoicePrompt
}
