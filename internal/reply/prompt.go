package reply

import "strings"

// Preference values for the system prompt clauses. Empty or unknown values
// fall back to the default clause for that axis.
const (
	LengthConcise  = "concise"
	LengthMedium   = "medium"
	LengthDetailed = "detailed"

	StyleConversational = "conversational"
	StyleProfessional   = "professional"
	StyleFriendly       = "friendly"

	SupportEmpathetic   = "empathetic"
	SupportBalanced     = "balanced"
	SupportMotivational = "motivational"
	SupportPractical    = "practical"
	SupportReflective   = "reflective"
)

// Preferences customise how the companion speaks to one participant.
type Preferences struct {
	// Name is the participant's display name. When set, the companion is
	// told to address them by name occasionally.
	Name string

	// Country is the participant's country name, used for culturally
	// appropriate responses. Empty defaults to India.
	Country string

	// MessageLength is one of the Length constants.
	MessageLength string

	// ResponseStyle is one of the Style constants.
	ResponseStyle string

	// SupportStyle is one of the Support constants.
	SupportStyle string
}

// BuildSystemPrompt assembles the system instruction from preferences. The
// concatenation is deterministic: the same preferences always produce the
// same prompt.
func BuildSystemPrompt(p Preferences) string {
	var b strings.Builder

	b.WriteString("You are Solace, a friendly and empathetic AI companion. Your purpose is to provide emotional support through brief, conversational messages.")

	if p.Country != "" {
		b.WriteString(" The user is from " + p.Country + ". Provide culturally appropriate responses that respect the norms and context of " + p.Country + ".")
	} else {
		b.WriteString(" Your primary user is from India.")
	}

	if p.Name != "" {
		b.WriteString(" The user's name is " + p.Name + ". Address them by name occasionally.")
	}

	switch p.MessageLength {
	case LengthConcise:
		b.WriteString(" Keep responses extremely brief (1 sentence max). Be direct and to-the-point.")
	case LengthMedium:
		b.WriteString(" Keep responses short (1-2 sentences max). Balance brevity with warmth.")
	case LengthDetailed:
		b.WriteString(" Provide thoughtful, more detailed responses (2-3 sentences). Offer more context and depth.")
	default:
		b.WriteString(" Keep responses very short (1-2 sentences max).")
	}

	switch p.ResponseStyle {
	case StyleConversational:
		b.WriteString(" Use a casual, friendly tone with occasional emojis. Respond as if texting a friend who needs support.")
	case StyleProfessional:
		b.WriteString(" Use a clear, respectful and slightly more formal tone. Be supportive yet professional in your approach.")
	case StyleFriendly:
		b.WriteString(" Use a warm, encouraging tone with supportive language and appropriate emojis. Be like a caring friend.")
	default:
		b.WriteString(" Use a casual, friendly tone with occasional emojis.")
	}

	switch p.SupportStyle {
	case SupportEmpathetic:
		b.WriteString(" Focus on validating feelings and showing deep empathy. Prioritize emotional connection over solutions.")
	case SupportBalanced:
		b.WriteString(" Balance empathy with gentle guidance. Validate feelings while offering perspective when appropriate.")
	case SupportMotivational:
		b.WriteString(" Be encouraging and uplifting. Focus on positive reframing and inspiring confidence.")
	case SupportPractical:
		b.WriteString(" Offer practical suggestions and action-oriented support. Focus on tangible next steps.")
	case SupportReflective:
		b.WriteString(" Ask thoughtful questions and help the user explore their feelings more deeply.")
	}

	b.WriteString(" Avoid lengthy explanations or clinical language.")

	return b.String()
}
