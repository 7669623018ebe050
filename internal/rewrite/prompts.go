package rewrite

const defaultSystemPrompt = `You are a news editor. Your task:

1. Rewrite the text in your own words, keeping every fact and detail
2. Use a neutral tone, without emotion or value judgements
3. Be concise but informative (600-900 characters)
4. Invent nothing that is not stated in the original
5. Drop excessive emoji and redundant detail
6. Keep the original language unless told otherwise
7. Preserve links to sources when present

The result must be ready for publication in a news channel.`

var stylePrompts = map[string]string{
	"neutral": "Write as neutrally and objectively as possible.",
	"formal":  "Use a formal register.",
	"casual":  "Write in plain, accessible language.",
	"brief":   "Be as brief as possible, key facts only.",
}

var languagePrompts = map[string]string{
	"uk": "Write in Ukrainian.",
	"en": "Write in English.",
	"ru": "Write in Russian.",
	"de": "Write in German.",
}

// SystemPrompt builds the complete system prompt from the base editor
// instructions plus style, language, and channel-specific additions.
func SystemPrompt(style, language, extra string) string {
	prompt := defaultSystemPrompt
	if p, ok := stylePrompts[style]; ok {
		prompt += "\n\n" + p
	}
	if p, ok := languagePrompts[language]; ok {
		prompt += "\n\n" + p
	}
	if extra != "" {
		prompt += "\n\n" + extra
	}
	return prompt
}

// UserPrompt wraps the text to rewrite.
func UserPrompt(text string) string {
	return "Rewrite this text:\n\n" + text
}
