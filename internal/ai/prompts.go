package ai

import "fmt"

const updateSystemPrompt = "You are a helpful assistant that maintains a single user document. " +
	"You will receive the current document and a user request. Update the document accordingly and respond concisely. " +
	"Preserve every part of the document the request does not mention and apply only the requested changes. " +
	"Return a JSON object with exactly two top-level string fields: \"message\" (assistant reply) and \"document\" (the full updated document). " +
	"Do not include markdown code fences or any extra text outside of the JSON."

const writerPrompt = "You are a compassionate and eloquent obituary writer. Your task is to write a respectful and heartfelt obituary based on the provided information."

const createGuidelines = `When creating obituary documents, follow these instructions:
- Use the specified tone (reverent, somber, uplifting, humorous, formal, personal, or inspiring). Without one, use a reverent tone.
- Use ALL the information provided in the request and nothing else.
- Make it 200-400 words with a proper obituary structure: announcement of death, life details, survivors.
- Begin with an opening sentence and end with a closing sentiment (e.g. "They will be dearly missed.").
- Do not include funeral service details, they are added separately.
- If the name matches a public figure, do not use any outside knowledge about that person.
- Include, when provided: name, dates of birth and death, places of origin and death, profession, accomplishments, hobbies and interests, surviving family.
- Output only the document text.`

const suggestionsSystemPrompt = "You are a helpful writing assistant. Given a piece of writing, offer suggestions to improve it and describe each change. " +
	"Every edit must contain full sentences instead of single words. Max 5 suggestions."

const MaxSuggestions = 5

// UpdateTurn is the final user turn of a structured update.
func UpdateTurn(prompt, document string) string {
	return fmt.Sprintf("User request:\n%s\n\nCurrent document:\n%s", prompt, document)
}

func createSystemPrompt() string {
	return writerPrompt + "\n\n" + createGuidelines
}

func targetedUpdatePrompt(current string) string {
	return fmt.Sprintf(`You are updating an existing document. Follow these rules:
1. Keep every part of the document that the request does not mention.
2. Only modify the sections, sentences or words the request names.
3. Keep the overall structure, formatting and flow of the original.
4. Do not rephrase or restructure anything that was not requested.

CURRENT DOCUMENT CONTENT:
%s

When asked to add information, insert it at the appropriate place. When asked to remove something, remove only that content.
Return the complete document with only the requested changes applied.`, current)
}
